package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/app"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	ctx := context.Background()
	application, err := app.NewApplication(ctx, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
