package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/orientation-scheduler/pkg/auth"
	"github.com/arnavshah/orientation-scheduler/pkg/config"
	"github.com/arnavshah/orientation-scheduler/pkg/logger"
)

func main() {
	// Load .env from the working directory or project root
	config.LoadDotEnv()

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if cfg.Auth.MasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not set")
		os.Exit(1)
	}

	userID := os.Args[1]
	apiKey := auth.NewService(cfg.Auth, logger.NopLogger{}).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, apiKey)
}
