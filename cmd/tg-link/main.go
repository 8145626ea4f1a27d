// tg-link prints the Mini-App deep link for a start parameter and shows it
// as a QR code that a phone camera can open.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/blockedby/finlog/internal/config"
	"github.com/blockedby/finlog/internal/telegram"
	"github.com/mdp/qrterminal/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	bot := flag.String("bot", cfg.TGBotUsername, "bot username")
	app := flag.String("app", cfg.TGAppName, "Mini-App short name")
	noQR := flag.Bool("no-qr", false, "print the link only")
	flag.Parse()

	if *bot == "" {
		fmt.Fprintln(os.Stderr, "bot username is required (-bot or TG_BOT_USERNAME)")
		os.Exit(2)
	}

	param := flag.Arg(0)
	sp := telegram.ParseStartParam(param)
	if param != "" && sp.Page == telegram.PageDashboard {
		fmt.Fprintf(os.Stderr, "note: %q opens the dashboard\n", param)
	}

	link := telegram.StartAppLink(*bot, *app, param)
	fmt.Println(link)
	fmt.Printf("opens %s\n", sp.Path())

	if !*noQR {
		qrterminal.Generate(link, qrterminal.L, os.Stdout)
	}
}
