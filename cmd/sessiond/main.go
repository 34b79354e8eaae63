package main

import (
	"log"

	"github.com/campushq/sessiond/app"
)

func main() {
	application, err := app.NewApp().Build()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	application.Run()
}
