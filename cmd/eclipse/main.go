package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file from current directory")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
