package main

import (
	"os"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/cmd/dataloader"
)

func main() {
	if err := dataloader.Execute(); err != nil {
		os.Exit(1)
	}
}
