package main

import (
	"github.com/nar3s/flickpick/internal/app"
	"github.com/nar3s/flickpick/internal/config"
)

func main() {
	app.Go(config.Load())
}
