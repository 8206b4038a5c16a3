package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	onboardmcp "github.com/tomaspereira-au/onboard-agent/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the onboarding MCP server on stdio",
	Long: `Start the onboarding MCP server on stdio transport.

The server exposes the onboarding protocol as MCP tools for the conversation
driver: start_session, validate_field, store_field, save_current_session,
get_summary, log_message, load_session, reset_session,
is_onboarding_complete, get_current_state, get_conversation_history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Ctrl == nil {
			return fmt.Errorf("controller not initialized")
		}

		srv := onboardmcp.NewServer(Ctrl, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
