package config

import (
	"encoding/base64"
	"fmt"
)

type Config struct {
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
	// MembershipDSN is the connection string for the studio membership
	// database owned by the CRUD API. When empty, join authorization is
	// disabled and any authenticated user may join any studio.
	MembershipDSN string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, base64Secret string, allowedOrigins []string, membershipDSN string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		MembershipDSN:  membershipDSN,
	}, nil
}
