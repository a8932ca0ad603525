package main

import (
	"log/slog"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/logger"
)

func main() {
	// Create a colored logger
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    Data Loader Colored Logger Demo")
	log.Info("============================================")
	log.Info("")

	log.Debug("Debug message - standard color")
	log.Info("Info message - standard color")
	log.Info("Loading nodes from file: cases.tsv - green!")
	log.Info("1832 (:case) node(s) loaded - also green!")
	log.Warn("Warning message - yellow!")
	log.Error("Error message - red!")

	log.Info("")
	log.Info("Database writes are highlighted in green:")
	log.Info("Loading relationships from file: samples.tsv")
	log.Info("974 (:sample)->[:of_case]->(:case) relationship(s) loaded")
	log.Info("2 new indexes created!")

	log.Info("")
	log.Warn("Warnings appear in yellow for attention")
	log.Error("Errors appear in red for immediate visibility")

	log.Info("")
	log.Info("Demo complete!")
}
