package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomHex returns n random bytes from crypto/rand as a hex string
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ServiceSecrets holds the secrets a deployment needs before first boot
type ServiceSecrets struct {
	JWTSecret        string
	JWTRefreshSecret string
	WebhookSecret    string
}

// GenerateServiceSecrets produces fresh 256-bit values for the two JWT
// signing keys and the webhook signature key
func GenerateServiceSecrets() (*ServiceSecrets, error) {
	access, err := RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	refresh, err := RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT refresh secret: %w", err)
	}

	webhook, err := RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	return &ServiceSecrets{
		JWTSecret:        access,
		JWTRefreshSecret: refresh,
		WebhookSecret:    webhook,
	}, nil
}
