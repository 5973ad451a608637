// cmd/api/token.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/config"
)

// issueToken prints a bearer token for local testing:
//
//	api token -account <uuid> -ttl 24h [-admin]
func issueToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	account := fs.String("account", "", "account id (random when empty)")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	admin := fs.Bool("admin", false, "grant the admin role")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 1
	}

	accountID := uuid.New()
	if *account != "" {
		if accountID, err = uuid.Parse(*account); err != nil {
			fmt.Fprintln(os.Stderr, "invalid account id:", err)
			return 2
		}
	}

	role := ""
	if *admin {
		role = auth.RoleAdmin
	}
	token, err := auth.GenerateRoleToken(cfg.Auth.JWTSecret, accountID, role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		return 1
	}
	fmt.Printf("account: %s\nrole:    %s\ntoken:   %s\n", accountID, role, token)
	return 0
}
