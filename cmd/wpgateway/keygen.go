package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/secrets"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random master key",
		Long: `Print a new hex-encoded master key suitable for WPGATEWAY_ENCRYPTION_KEY.

Changing the key makes previously stored credentials unreadable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := secrets.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}
