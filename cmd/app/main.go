package main

import (
	"os"

	"order_actor/cmd/app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
