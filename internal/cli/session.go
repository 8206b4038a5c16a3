package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))

	sessionDoneStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	sessionOpenStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	speakerUserStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	speakerAgentStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect persisted onboarding sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("session store not initialized")
		}

		entries, err := Store.List()
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No sessions yet.")
			return nil
		}

		fmt.Println(sessionHeaderStyle.Render(fmt.Sprintf("%-38s %-20s %7s %6s  %s",
			"SESSION", "UPDATED", "FIELDS", "TURNS", "STATUS")))
		for _, e := range entries {
			status := sessionOpenStyle.Render("collecting")
			if e.Completed {
				status = sessionDoneStyle.Render("completed")
			}
			fmt.Printf("%-38s %-20s %7d %6d  %s\n",
				e.ID, e.UpdatedAt.Format("2006-01-02 15:04:05"), e.Fields, e.Turns, status)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session's collected fields and transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("session store not initialized")
		}

		rec, err := Store.Load(args[0])
		if err != nil {
			if Store.IsNotFound(err) {
				return fmt.Errorf("session %s has no durable record", args[0])
			}
			return fmt.Errorf("loading session: %w", err)
		}

		fmt.Println(sessionHeaderStyle.Render("Session " + rec.SessionID))
		if rec.Completed {
			fmt.Println(sessionDoneStyle.Render("completed"))
		} else {
			fmt.Println(sessionOpenStyle.Render("collecting"))
		}

		fmt.Println()
		fmt.Println(sessionHeaderStyle.Render("Fields"))
		if len(rec.Fields) == 0 {
			fmt.Println("  (none collected)")
		}
		for _, kind := range models.AllFieldKinds() {
			if value, ok := rec.Fields[kind]; ok {
				fmt.Printf("  %-8s %s\n", kind, value)
			}
		}

		fmt.Println()
		fmt.Println(sessionHeaderStyle.Render("Transcript"))
		for _, e := range rec.Transcript {
			style := speakerUserStyle
			if e.Speaker == models.SpeakerAgent {
				style = speakerAgentStyle
			}
			label := style.Render(strings.ToUpper(string(e.Speaker)))
			fmt.Printf("  %3d %s %s  %s\n", e.Seq, e.Timestamp.Format("15:04:05"), label, e.Text)
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	rootCmd.AddCommand(sessionCmd)
}
