// Command issue-token signs a bearer token for local testing of the REST API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"

	"github.com/garyjia/promotion-approval/internal/config"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	httpapi "github.com/garyjia/promotion-approval/internal/interfaces/http"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	userID := flag.String("user", "", "User ID placed in the token (required)")
	roleName := flag.String("role", "employee", "Role: employee, manager, gm or hr")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	flag.Parse()

	_ = gotenv.Load()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: issue-token --user <id> [--role manager] [--ttl 1h]")
		os.Exit(2)
	}

	role, err := workflow.ParseRole(*roleName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	auth, err := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.Issue(*userID, role, lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Token for %s (%s), expires %s\n",
		*userID, role, time.Now().Add(lifetime).UTC().Format(time.RFC3339))
	fmt.Println(token)
}
