// Command campushub serves the campus map, events and profile API.
package main

import (
	"context"
	"log"

	"github.com/dalemusser/campushub/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
