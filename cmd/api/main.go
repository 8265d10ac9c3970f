package main

import (
	"log"

	"github.com/nits830/pdf-mechanic/internal/bootstrap"
	"github.com/nits830/pdf-mechanic/internal/shared/config"
	"github.com/nits830/pdf-mechanic/internal/shared/server"
	"github.com/nits830/pdf-mechanic/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.Env)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
