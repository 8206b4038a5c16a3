package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomaspereira-au/onboard-agent/internal/observability"
)

var (
	eventsType    string
	eventsLevel   string
	eventsSession string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read the operator event log",
	Long: `Read events from the JSONL operator log: session milestones, validation
rejections, and storage failures. Filter by type, level, or session id.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}

		events, err := EventLog.Read(observability.EventFilter{
			Type:    eventsType,
			Level:   eventsLevel,
			Session: eventsSession,
		})
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}

		for _, e := range events {
			line := fmt.Sprintf("%s %-5s %-22s", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Type)
			if e.Session != "" {
				line += " session=" + e.Session
			}
			for k, v := range e.Data {
				line += fmt.Sprintf(" %s=%v", k, v)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "Filter by event type (e.g. storage.write_failed)")
	eventsCmd.Flags().StringVar(&eventsLevel, "level", "", "Filter by level (INFO, WARN, ERROR)")
	eventsCmd.Flags().StringVar(&eventsSession, "session", "", "Filter by session id")
	rootCmd.AddCommand(eventsCmd)
}
