package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/solatis/ducktest/internal/client"
	"github.com/solatis/ducktest/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask a running server whether a record is a duck",
	Long: `check opens a session on a ducktest server and calls is_it_a_duck.

The record defaults to one that looks, swims and quacks like a duck.
--file loads a YAML mapping; --looks, --swims and --quacks override
individual fields.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("addr", "localhost:12345", "server address")
	checkCmd.Flags().String("api-key", "", "API key (defaults to DT_API_KEY)")
	checkCmd.Flags().String("file", "", "YAML file holding the record")
	checkCmd.Flags().Duration("timeout", 10*time.Second, "overall timeout")
	for _, field := range types.DuckFields {
		checkCmd.Flags().String(field, types.DuckLiteral, fmt.Sprintf("value of the %q field", field))
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	apiKey, _ := cmd.Flags().GetString("api-key")
	file, _ := cmd.Flags().GetString("file")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if apiKey == "" {
		apiKey = os.Getenv("DT_API_KEY")
	}

	record, err := buildRecord(file, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var opts []client.Option
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	conn, err := client.Dial(addr, opts...)
	if err != nil {
		return err
	}
	defer conn.Close()

	sess, err := conn.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Warn("close session failed", "session_id", sess.ID(), "error", err)
		}
	}()

	isDuck, err := sess.IsItADuck(ctx, record)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), verdict(isDuck))
	return nil
}

func verdict(isDuck bool) string {
	if isDuck {
		return "It's probably a duck."
	}
	return "It's probably NOT a duck."
}

// buildRecord merges the YAML file (if any) with the duck field flags.
// Without a file every duck field takes its flag value; with a file only
// explicitly set flags override.
func buildRecord(path string, flags *pflag.FlagSet) (map[string]any, error) {
	record := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if err := yaml.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parse record %s: %w", path, err)
		}
		if record == nil {
			record = map[string]any{}
		}
	}

	for _, field := range types.DuckFields {
		if path != "" && !flags.Changed(field) {
			continue
		}
		v, err := flags.GetString(field)
		if err != nil {
			return nil, err
		}
		record[field] = v
	}
	return record, nil
}
