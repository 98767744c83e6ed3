package main

import (
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/thermlog/internal/auth"
	"github.com/nerrad567/thermlog/internal/infrastructure/config"
)

// issueToken signs an API token for opts.issueToken with the configured
// secret and writes it to w. There is no user store; operators mint tokens
// on the host.
func issueToken(w io.Writer, opts options) error {
	cfg, err := config.Load(getConfigPath(opts.configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ttl := time.Duration(cfg.Security.JWT.TokenTTL) * time.Minute
	token, err := auth.IssueToken(opts.issueToken, auth.Role(opts.role), cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	_, err = fmt.Fprintln(w, token)
	return err
}
