package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "wpgateway",
		Short:   "WordPress MCP gateway",
		Version: version,
		Long: `wpgateway exposes WordPress post operations to LLM agents over the
Model Context Protocol, using per-owner connections whose credentials are
stored encrypted at rest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(connectionsCmd())

	return rootCmd
}
