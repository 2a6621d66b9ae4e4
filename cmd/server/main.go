package main

import (
	"log/slog"
	"os"

	"auth-service/internal/app"
	"auth-service/internal/logger"
)

func main() {
	// Bootstrap logger until config decides the format.
	slog.SetDefault(logger.New(os.Stdout, "pretty", slog.LevelInfo))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
