package utils

import (
	"log"
	"os"
)

// JWTSecretKey verifies the bearer tokens issued by the account service.
// This service never issues tokens; it only validates them.
var JWTSecretKey string

func InitJWT() {
	// For tests, use a default secret if the environment isn't set
	if os.Getenv("GO_ENV") == "test" && os.Getenv("JWT_SECRET_KEY") == "" {
		os.Setenv("JWT_SECRET_KEY", "test_secret_key")
	}

	JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
	if JWTSecretKey == "" {
		log.Fatal("JWT Secret Key not set")
	}
}
