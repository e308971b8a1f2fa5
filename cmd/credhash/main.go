package main

import (
	"log"
	"os"

	"github.com/dmitrijs2005/authentify/internal/credhash"
)

func main() {
	if err := credhash.Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}
