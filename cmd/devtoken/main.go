// Command devtoken prints a bearer token for an existing user, for local
// testing against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/safar/techshop-orders/internal/auth"
	"github.com/safar/techshop-orders/internal/config"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/store"
)

func main() {
	userID := flag.Int64("user", 0, "id of the user to issue the token for")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_TTL)")
	flag.Parse()

	if err := run(*userID, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "devtoken: %v\n", err)
		os.Exit(1)
	}
}

func run(userID int64, ttl time.Duration) error {
	if userID <= 0 {
		return fmt.Errorf("-user must be a positive id")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := store.GetUser(ctx, db, userID)
	if err != nil {
		return err
	}

	token, err := auth.NewTokens(cfg.Auth.JWTSecret, ttl).Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
