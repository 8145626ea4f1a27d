package web

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/blockedby/finlog/internal/auth"
	"github.com/blockedby/finlog/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplates() fstest.MapFS {
	return fstest.MapFS{
		"layout.html": {Data: []byte(`{{ define "layout" }}<!DOCTYPE html><html><body>{{ template "content" . }}</body></html>{{ end }}`)},
		"partials.html": {Data: []byte(`{{ define "greeting" }}hi {{ .Name | lower }}{{ end }}`)},
		"pages/page.html": {Data: []byte(`{{ define "content" }}<h1>{{ .Title }}</h1>{{ with dict "Name" "ANN" }}{{ template "greeting" . }}{{ end }}{{ end }}`)},
		"pages/broken.html": {Data: []byte(`{{ define "content" }}{{ .Title `)},
	}
}

func TestTemplateEngine_Render(t *testing.T) {
	engine := NewTemplateEngine(testTemplates(), false)
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, "page", map[string]interface{}{"Title": "Dashboard"}))

	html := buf.String()
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<h1>Dashboard</h1>")
	assert.Contains(t, html, "hi ann")
}

func TestTemplateEngine_RenderContent(t *testing.T) {
	engine := NewTemplateEngine(testTemplates(), false)
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	require.NoError(t, engine.RenderContent(&buf, "page", map[string]interface{}{"Title": "Expenses"}))

	assert.NotContains(t, buf.String(), "<!DOCTYPE html>")
	assert.Contains(t, buf.String(), "<h1>Expenses</h1>")
}

func TestTemplateEngine_RenderPartial(t *testing.T) {
	engine := NewTemplateEngine(testTemplates(), false)
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	require.NoError(t, engine.RenderPartial(&buf, "greeting", map[string]string{"Name": "Bob"}))
	assert.Equal(t, "hi bob", buf.String())
}

func TestTemplateEngine_Errors(t *testing.T) {
	engine := NewTemplateEngine(testTemplates(), false)

	var buf bytes.Buffer
	assert.Error(t, engine.Render(&buf, "page", nil), "render before load")

	require.NoError(t, engine.Load())
	assert.Error(t, engine.Render(&buf, "missing", nil))
	assert.Error(t, engine.Render(&buf, "broken", nil))
}

func TestTemplateEngine_ReloadPicksUpChanges(t *testing.T) {
	fsys := testTemplates()
	engine := NewTemplateEngine(fsys, true)
	require.NoError(t, engine.Load())

	fsys["partials.html"] = &fstest.MapFile{Data: []byte(`{{ define "greeting" }}hello {{ .Name }}{{ end }}`)}

	var buf bytes.Buffer
	require.NoError(t, engine.RenderPartial(&buf, "greeting", map[string]string{"Name": "Bob"}))
	assert.Equal(t, "hello Bob", buf.String())
}

func TestRealTemplates_Load(t *testing.T) {
	engine := NewTemplateEngine(Templates(), false)
	require.NoError(t, engine.Load(), "bundled templates must parse")

	for _, page := range []string{
		"landing", "login", "register", "forgot-password", "reset-password",
		"telegram", "dashboard", "expenses", "schedules", "analytics", "loading",
	} {
		t.Run(page, func(t *testing.T) {
			var buf bytes.Buffer
			data := map[string]interface{}{
				"Title":      page,
				"ActivePage": page,
				"Session":    session.State{},
				"Flow":       auth.FlowState{},
				"Error":      "",
			}
			require.NoError(t, engine.Render(&buf, page, data))
		})
	}
}

func TestTelegramPage_SignalsReadyAndExpands(t *testing.T) {
	engine := NewTemplateEngine(Templates(), false)
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, "telegram", map[string]interface{}{
		"Title":   "Telegram",
		"Session": session.State{},
		"Flow":    auth.FlowState{},
	}))

	body := buf.String()
	ready := strings.Index(body, "app.ready();")
	expand := strings.Index(body, "app.expand();")
	require.NotEqual(t, -1, ready)
	require.NotEqual(t, -1, expand, "the Mini-App asks for full height")
	assert.Less(t, ready, expand)
}
