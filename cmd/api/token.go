package main

import (
	"errors"
	"fmt"
	"time"

	"flower-shop/internal/auth"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the write API",
	Long: `Mint a signed bearer token using JWT_SECRET. Staff who edit the
inventory need the admin role; the default lifetime is JWT_ACCESS_EXPIRY minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		ttl := tokenTTL
		if ttl == 0 {
			ttl = time.Duration(cfg.JWT.AccessExpiry) * time.Minute
		}

		token, err := auth.Issue(cfg.JWT.Secret, tokenSubject, tokenRole, ttl, time.Now())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "who the token is for")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleAdmin, "role claim (admin or viewer)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, overrides JWT_ACCESS_EXPIRY")
	tokenCmd.MarkFlagRequired("subject")
}
