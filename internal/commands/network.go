package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumber-labs/lumber-agent/internal/client"
)

// NewNetworkCmd creates the network troubleshooting command group.
func NewNetworkCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Run network connectivity checks through the agent",
	}
	cmd.AddCommand(newNetworkProbeCmd(cfg, "open", "Test whether host:port accepts a TCP connection"))
	cmd.AddCommand(newNetworkProbeCmd(cfg, "telnet", "Probe whether a telnet-style connection stays usable"))
	cmd.AddCommand(newNetworkDNSCmd(cfg))
	cmd.AddCommand(newNetworkHTTPCmd(cfg))
	cmd.AddCommand(newNetworkOutboundIPCmd(cfg))
	return cmd
}

func runNetworkTest(cmd *cobra.Command, cfg *Config, path string, params url.Values) error {
	cli, err := client.New(cfg.Server, cfg.APIKey, cfg.Timeout)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	status, body, err := cli.Get(ctx, path+"?"+params.Encode())
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("check failed (%d): %s", status, string(body))
	}

	var pretty json.RawMessage = body
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func newNetworkProbeCmd(cfg *Config, name, short string) *cobra.Command {
	var timeout string

	cmd := &cobra.Command{
		Use:   name + " <host> <port>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"host": {args[0]}, "port": {args[1]}}
			if timeout != "" {
				params.Set("timeout", timeout)
			}
			return runNetworkTest(cmd, cfg, "/api/v1/test/network/"+name, params)
		},
	}
	cmd.Flags().StringVar(&timeout, "timeout", "", "Timeout in seconds")
	return cmd
}

func newNetworkDNSCmd(cfg *Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "dns <host>",
		Short: "Resolve a host through the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"host": {args[0]}}
			if port != "" {
				params.Set("port", port)
			}
			return runNetworkTest(cmd, cfg, "/api/v1/test/network/dns", params)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to join to each resolved address")
	return cmd
}

func newNetworkHTTPCmd(cfg *Config) *cobra.Command {
	var (
		includeResponse bool
		timeout         string
	)

	cmd := &cobra.Command{
		Use:   "http <url>",
		Short: "Test an outbound HTTP URL from the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"url": {args[0]}}
			if includeResponse {
				params.Set("include_response", "true")
			}
			if timeout != "" {
				params.Set("timeout", timeout)
			}
			return runNetworkTest(cmd, cfg, "/api/v1/test/network/http", params)
		},
	}
	cmd.Flags().BoolVar(&includeResponse, "include-response", false, "Include the response body")
	cmd.Flags().StringVar(&timeout, "timeout", "", "Timeout in seconds")
	return cmd
}

func newNetworkOutboundIPCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "outbound-ip",
		Short: "Report the agent's public outbound IP address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetworkTest(cmd, cfg, "/api/v1/test/network/outbound_ip", url.Values{})
		},
	}
}
