package main

import (
	"os"

	"horse.fit/unify/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
