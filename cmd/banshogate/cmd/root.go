// Package cmd provides the CLI commands for banshogate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Microck/bansho/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "banshogate",
	Short: "banshogate - MCP security proxy",
	Long: `banshogate sits between an MCP-speaking client and an upstream MCP
tool server. It authenticates the caller, authorizes the requested tool
against a declarative policy, rate-limits per caller and per tool, and
persists an audit record of every tools/call.

Configuration is read entirely from the environment (see internal/config
for the full variable table); there is no config file.

Commands:
  serve             Start the proxy, serving MCP over stdin/stdout
  keys create       Mint a new API key
  keys list         List all keys, newest first
  keys revoke       Revoke a key by ID
  version           Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(config.InitViper)
}
