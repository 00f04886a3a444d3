package main

import (
	"fmt"
	"os"

	"github.com/kimipsen/grouper/pkg/auth"
	"github.com/kimipsen/grouper/pkg/config"
)

func main() {
	// Load .env from project root
	cfg := config.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	userID := os.Args[1]
	if cfg.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in environment or .env")
		os.Exit(1)
	}

	apiKey := auth.New(cfg).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, apiKey)
}
