package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/pcpboard/internal/server"
	"github.com/dmitrijs2005/pcpboard/internal/server/config"
)

func main() {

	ctx := context.Background()

	if err := config.LoadDotenv(); err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
