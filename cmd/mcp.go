package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/urbaneyes/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client list categories, browse and report issues,
move issues through the status workflow and ask for a category
suggestion. Configure the client with:

  {
    "mcpServers": {
      "urbaneyes": { "command": "urbaneyes", "args": ["mcp"] }
    }
  }

Available tools: ue_list_categories, ue_list_issues, ue_create_issue,
ue_update_issue_status, ue_suggest_category`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := getManagers()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()
		return mcp.NewServer(m, newSuggester()).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
