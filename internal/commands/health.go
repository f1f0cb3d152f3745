package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumber-labs/lumber-agent/internal/client"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewHealthCmd creates the health check command.
func NewHealthCmd(cfg *Config) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check agent health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.New(cfg.Server, cfg.APIKey, cfg.Timeout)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if full {
				status, body, err := cli.Get(ctx, "/api/v1/agent/health")
				if err != nil {
					return err
				}
				if status != 200 {
					return fmt.Errorf("server returned %d: %s", status, string(body))
				}
				var pretty json.RawMessage = body
				out, err := json.MarshalIndent(pretty, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(os.Stdout, string(out))
				return nil
			}

			status, body, err := cli.Get(ctx, "/health")
			if err != nil {
				return err
			}
			if status != 200 {
				return fmt.Errorf("server returned %d: %s", status, string(body))
			}

			var resp healthResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "status=%s version=%s\n", resp.Status, resp.Version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Fetch the full diagnostic health report")
	return cmd
}
