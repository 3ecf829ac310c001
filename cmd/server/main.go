// Command server runs the chatrelay streaming chat API.
//
// Configuration is read from a YAML file (--config, CHATRELAY_CONFIG,
// ./config.yaml or /etc/chatrelay/config.yaml), .env.local and environment
// variables:
//
//	OPENAI_API_KEY        - Upstream API key (required)
//	OPENAI_MODEL          - Model name (default: gpt-4o)
//	OPENAI_BASE_URL       - Compatible API endpoint (optional)
//	CHATRELAY_PORT        - Listen port (default: 8000)
//	BACKEND_CORS_ORIGINS  - Allowed origins, JSON array or comma separated
//	CHATRELAY_MCP_SERVERS - MCP servers as a JSON array
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatrelay",
		Short: "Streaming chat relay with server-side tool calls",
		Long: `chatrelay relays chat conversations to an OpenAI compatible completion API
and streams the answer back as plain text or as data stream frames. Tool
calls requested by the model are executed on the server and their results
are streamed to the client.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), serveOptions{})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Listen port, overrides the configured port")

	return cmd
}

func toolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools advertised to the model",
		Long: `List the built-in tools and the tools discovered on the configured MCP
servers, in the order they are advertised to the model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(cmd.Context(), cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tool definitions as JSON")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application name and version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.App.Name, cfg.App.Version)
			return nil
		},
	}
}
