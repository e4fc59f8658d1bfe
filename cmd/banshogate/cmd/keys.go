package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Microck/bansho/internal/adapter/outbound/sqlstore"
	"github.com/Microck/bansho/internal/config"
	"github.com/Microck/bansho/internal/domain/auth"
)

var createRole string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint a new API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openCredentialService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		id := uuid.NewString()
		plaintext, err := svc.Create(cmd.Context(), id, auth.Role(createRole))
		if err != nil {
			return fmt.Errorf("banshogate: create key: %w", err)
		}
		fmt.Printf("api_key_id: %s\n", id)
		fmt.Printf("api_key:    %s\n", plaintext)
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all keys, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openCredentialService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		keys, err := svc.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("banshogate: list keys: %w", err)
		}
		for _, k := range keys {
			status := "active"
			if !k.Active() {
				status = "revoked"
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", k.ID, k.Role, status, k.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a key by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openCredentialService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		ok, err := svc.Revoke(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("banshogate: revoke key: %w", err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "no active key found with id %q\n", args[0])
			os.Exit(1)
		}
		fmt.Printf("revoked %s\n", args[0])
		return nil
	},
}

func init() {
	keysCreateCmd.Flags().StringVar(&createRole, "role", string(auth.RoleReadonly), "role to assign: admin, user, or readonly")
	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysRevokeCmd)
	rootCmd.AddCommand(keysCmd)
}

// openCredentialService opens the configured store directly, bypassing the
// full AppContext (no upstream/limiter/tracer needed for key management).
func openCredentialService(ctx context.Context) (*auth.Service, func(), error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("banshogate: %w", err)
	}
	db, err := sqlstore.Open(ctx, settings.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("banshogate: open store: %w", err)
	}
	store := sqlstore.NewCredentialStore(db)
	return auth.NewService(store), func() { _ = db.Close() }, nil
}
