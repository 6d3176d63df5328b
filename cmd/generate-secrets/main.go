package main

import (
	"fmt"
	"log"

	"github.com/openwheels/rental-backend/internal/utils"
)

// Prints fresh values for every secret the server reads from the
// environment, ready to paste into a .env file or a secret store.
func main() {
	secrets, err := utils.GenerateServiceSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("# OpenWheels deployment secrets, generated locally.")
	fmt.Println("# Keep these out of version control.")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secrets.JWTSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", secrets.JWTRefreshSecret)
	fmt.Printf("PAYMENT_WEBHOOK_SECRET=%s\n", secrets.WebhookSecret)
	fmt.Println()
	fmt.Println("# PAYMENT_SECRET_KEY comes from the processor dashboard and is not generated here.")
}
