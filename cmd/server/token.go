package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/govsync/internal/server/auth"
	"github.com/dmitrijs2005/govsync/internal/server/config"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token for the trigger endpoints",
	Args:  cobra.NoArgs,
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return issueToken(cmd.OutOrStdout(), cfg.AdminSecret, tokenSubject, tokenTTL)
	},
}

// issueToken writes a token signed with secret to w.
func issueToken(w io.Writer, secret, subject string, ttl time.Duration) error {
	if secret == "" {
		return errors.New("ADMIN_SECRET is not set, trigger endpoints are open")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	tok, err := auth.GenerateToken(subject, []byte(secret), ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "ops", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token validity")
	rootCmd.AddCommand(tokenCmd)
}
