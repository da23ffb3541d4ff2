// Command admin-token prints a bearer token for the configured admin.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/rivalry/internal/adapters/auth"
	"github.com/okian/rivalry/internal/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		_, _ = os.Stderr.WriteString("admin-token: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)
	email := fs.String("email", "", "Email claim (default: auth.admin_email)")
	ttl := fs.Duration("ttl", 0, "Token lifetime (default: auth.token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *email == "" {
		*email = cfg.Auth.AdminEmail
	}
	if *ttl <= 0 {
		*ttl = cfg.Auth.TokenTTL
	}

	a := auth.NewJWTAuthenticator(cfg.Auth.Secret, cfg.Auth.AdminEmail,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTTL(*ttl),
	)
	token, err := a.Issue(*email)
	if err != nil {
		return err
	}
	fmt.Println(token)
	_, _ = fmt.Fprintln(os.Stderr, "expires", time.Now().Add(*ttl).UTC().Format(time.RFC3339))
	return nil
}
