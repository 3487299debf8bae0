package cmd

import (
	"context"
	"fmt"

	"github.com/solatis/ducktest/internal/core/auth"
	"github.com/solatis/ducktest/internal/core/config"
	"github.com/solatis/ducktest/internal/core/db"
	"github.com/solatis/ducktest/internal/types"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an API key for a client",
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd)

	keysCreateCmd.Flags().String("client-id", "", "client the key authenticates as")
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (required when several are configured)")
	_ = keysCreateCmd.MarkFlagRequired("client-id")
}

func openStore() (*db.Store, func(), error) {
	database, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	if err := db.RequireCurrent(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	store, err := db.NewStore(queries)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, func() { database.Close() }, nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	clientID, _ := cmd.Flags().GetString("client-id")
	secretID, _ := cmd.Flags().GetString("secret-id")

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set DT_HMAC_SECRET environment variable)")
	}

	store, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	issued, err := auth.IssueKey(context.Background(), store, secrets, secretID, types.ClientID(clientID))
	if err != nil {
		return err
	}

	logger.Info("api key issued", "api_key_id", issued.APIKeyID, "client_id", issued.ClientID, "secret_id", issued.SecretID)
	fmt.Fprintf(cmd.OutOrStdout(), "api_key_id: %s\napi_key:    %s\n", issued.APIKeyID, issued.Key)
	fmt.Fprintln(cmd.ErrOrStderr(), "Store the key now; it cannot be shown again.")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	revoked, err := store.RevokeAPIKey(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !revoked {
		return fmt.Errorf("api key %s not found or already revoked", args[0])
	}
	logger.Info("api key revoked", "api_key_id", args[0])
	return nil
}
