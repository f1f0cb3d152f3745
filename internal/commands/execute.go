package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumber-labs/lumber-agent/internal/client"
)

// NewExecuteCmd creates the operation execution command. The operation JSON
// comes from a file or stdin; credentials come from a file.
func NewExecuteCmd(cfg *Config) *cobra.Command {
	var (
		operationPath   string
		credentialsPath string
		fetch           bool
	)

	cmd := &cobra.Command{
		Use:   "execute <connection_type> <operation_name>",
		Short: "Execute an operation against a proxy client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.New(cfg.Server, cfg.APIKey, cfg.Timeout)
			if err != nil {
				return err
			}

			operation, err := readJSONInput(operationPath)
			if err != nil {
				return fmt.Errorf("read operation: %w", err)
			}

			var credentials map[string]any
			if credentialsPath != "" {
				data, err := os.ReadFile(credentialsPath)
				if err != nil {
					return fmt.Errorf("read credentials: %w", err)
				}
				if err := json.Unmarshal(data, &credentials); err != nil {
					return fmt.Errorf("parse credentials: %w", err)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			status, resp, err := cli.Execute(ctx, args[0], args[1], client.ExecuteRequest{
				Credentials: credentials,
				Operation:   operation,
			})
			if err != nil {
				return err
			}
			if status != 200 {
				return fmt.Errorf("operation failed (%d, %s): %s", status, resp.ErrorType, resp.Error)
			}

			if resp.ResultLocation != "" {
				if !fetch {
					_, _ = fmt.Fprintf(os.Stdout, "result_location=%s trace_id=%s\n", resp.ResultLocation, resp.TraceID)
					return nil
				}
				payload, err := cli.FetchResponse(ctx, resp.ResultLocation)
				if err != nil {
					return err
				}
				_, _ = os.Stdout.Write(payload)
				_, _ = fmt.Fprintln(os.Stdout)
				return nil
			}

			out, err := json.MarshalIndent(resp.Result, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&operationPath, "operation", "o", "-", "Operation JSON file ('-' for stdin)")
	cmd.Flags().StringVarP(&credentialsPath, "credentials", "c", "", "Credentials JSON file")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "Download offloaded results instead of printing the location")
	return cmd
}

func readJSONInput(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" || path == "" {
		data, err = readAllStdin()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("input is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no operation provided; pass --operation or pipe JSON on stdin")
	}
	return io.ReadAll(os.Stdin)
}
