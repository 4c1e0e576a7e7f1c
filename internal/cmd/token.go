package cmd

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/waitgate/jwt"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenScopes  []string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		if !cfg.Admin.Enabled() {
			return errors.New("admin.signing_key is not set")
		}
		tokens, err := newTokenManager(cfg.Admin)
		if err != nil {
			return err
		}
		tok, err := tokens.Issue(tokenSubject, tokenScopes)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope",
		[]string{jwt.ScopeMetricsRead, jwt.ScopePoliciesRead}, "granted scopes")
}
