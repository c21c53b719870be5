package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pitchforge-ai-api/internal/wire"
	"pitchforge-ai-api/pkg/utils"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the document backend and model provider can be initialized",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rt, err := wire.InitializeDeckRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "backend: %s\n", rt.Backend.Name)
		fmt.Fprintf(out, "master: %s\n", rt.Backend.MasterID)
		if rt.Backend.ChartSpreadsheetID != "" {
			fmt.Fprintf(out, "chart spreadsheet: %s\n", rt.Backend.ChartSpreadsheetID)
		}
		fmt.Fprintf(out, "llm provider: %s\n", cfg.LLM.DefaultProvider)
		fmt.Fprintln(out, "ok")
		return nil
	},
}

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for the API gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Security.JWT.Secret == "" {
			return fmt.Errorf("security.jwt.secret is not configured")
		}

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Security.JWT.Expiration
		}
		if ttl <= 0 {
			ttl = time.Hour
		}
		token, err := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).
			GenerateToken(tokenSubject, tokenRole, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "deckctl", "token subject (user id)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "token role")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to security.jwt.expiration)")
}
