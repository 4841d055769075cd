package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/fred-backend/internal/app"
	"github.com/yungbote/fred-backend/internal/services"
)

var (
	tokenUser string
	tokenRole string
	tokenTTL  time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject user id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "member", "member or operator")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to auth.dev_token_ttl)")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed access token for local testing",
	Long: `Mint an HS256 access token signed with the configured JWT secret.

Examples:
  # Token for a fresh member
  fred token

  # Operator token valid for one hour
  fred token --role operator --ttl 1h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := app.NewLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		userID := uuid.New()
		if tokenUser != "" {
			if userID, err = uuid.Parse(tokenUser); err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.DevTokenTTL
		}

		auth, err := services.NewAuthService(log, cfg.Auth.JWTSecretKey, cfg.Auth.Issuer)
		if err != nil {
			return err
		}
		tok, err := auth.IssueToken(userID, tokenRole, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user: %s\ntoken: %s\n", userID, tok)
		return nil
	},
}
