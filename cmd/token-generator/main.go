// Command token-generator mints a bearer token for local development and
// manual testing. It signs with the same auth settings the server reads
// (TRACKER_AUTH_* variables, .env, or config.yaml).
//
//	token-generator -sub alice -email alice@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/phrazzld/tasktracker-api/internal/service/auth"
)

func main() {
	subject := flag.String("sub", "", "owner id to put in the token subject (required)")
	email := flag.String("email", "", "email claim; tasks created with it are notified on expiry")
	lifetime := flag.Int("ttl", 0, "token lifetime in minutes (default from auth.token_lifetime_minutes)")
	header := flag.Bool("header", false, "print a full Authorization header value")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "error: -sub is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadAuth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *lifetime > 0 {
		cfg.TokenLifetimeMinutes = *lifetime
	}

	svc, err := auth.NewJWTService(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	token, err := svc.GenerateToken(context.Background(), auth.Identity{Subject: *subject, Email: *email})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating token: %v\n", err)
		os.Exit(1)
	}

	if *header {
		fmt.Printf("Bearer %s\n", token)
		return
	}
	fmt.Println(token)
}
