// Command banshogate runs the MCP security proxy: authentication,
// authorization, rate limiting, and audit logging in front of an upstream
// MCP tool server.
package main

import "github.com/Microck/bansho/cmd/banshogate/cmd"

func main() {
	cmd.Execute()
}
