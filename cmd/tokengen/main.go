// Command tokengen prints a bearer token for the mutating API routes.
// It signs with JWT_SECRET and expires after SESSION_EXPIRATION_HOURS.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stargallery/service/internal/auth"
	"github.com/stargallery/service/internal/config"
)

func main() {
	subject := flag.String("subject", "admin", "token subject")
	flag.Parse()

	cfg := config.Load()
	if !cfg.AuthEnabled() {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	ttl := time.Duration(cfg.SessionExpirationHours) * time.Hour
	token, err := auth.IssueToken(cfg.JWTSecret, *subject, ttl, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("issue token")
	}

	fmt.Println(token)
}
