package main

import (
	"context"
	"log"

	"github.com/secrypt/secrypt/internal/server"
	"github.com/secrypt/secrypt/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
