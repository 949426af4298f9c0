package main

import (
	"log"

	"github.com/atlasdrive/webdav/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
