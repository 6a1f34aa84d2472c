package main

import (
	"log/slog"
	"os"

	"github.com/aussiebroadwan/storefront/internal/auth/app"
)

func main() {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		slog.Error("failed to start auth service", "version", app.BuildVersion, "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("auth service exited with error", "error", err)
		os.Exit(1)
	}
}
