package main

import (
	"log"

	"github.com/yungbote/snackfleet-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}
	defer a.Stop()

	a.Start()
	a.Log.Info("Starting HTTP server", "addr", a.Cfg.HTTPAddr)
	if err := a.Run(a.Cfg.HTTPAddr); err != nil {
		a.Log.Fatal("HTTP server exited", "error", err)
	}
}
