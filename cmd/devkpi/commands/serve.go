package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"devkpi/internal/engine"
	"devkpi/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Serve exposes the scoring pipeline as Model Context Protocol tools over
stdio, for use by MCP-capable clients. Logs go to stderr and the log file;
stdout carries only the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info().Msg("MCP server starting on stdio")
		server := mcp.NewServer(engineCfg, engine.Options{})
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
