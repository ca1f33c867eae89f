package main

import (
	"fmt"
	"os"

	"trolleymatch/adapters/trolley"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/ports"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	rootCmd := newRootCmd(func(cfg *config.Config, logger *internal.Logger) (ports.ProductScraper, error) {
		return trolley.NewClient(cfg.Scraper, logger)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
