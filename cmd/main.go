package main

import (
	"fmt"
	"os"

	"github.com/yungbote/streemm-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	if a.Cfg.RunServer {
		a.Log.Info("server listening", "addr", a.Cfg.HTTPAddr)
		if err := a.Run(a.Cfg.HTTPAddr); err != nil {
			a.Log.Warn("server stopped", "error", err)
		}
		return
	}

	// Worker/notifier-only container: keep the process alive for the
	// background loops Start launched.
	select {}
}
