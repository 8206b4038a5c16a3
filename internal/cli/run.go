package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tomaspereira-au/onboard-agent/internal/core"
	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// The run command is a local, text-only stand-in for the voice conversation
// driver: it walks the four fields against the real controller, so the full
// validate/store/persist path is exercised without any speech transport.

var (
	runTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	runAgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	runUserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	runHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	runDoneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
)

type conversationLine struct {
	speaker models.Speaker
	text    string
}

type runModel struct {
	ctrl      *core.Controller
	sessionID string

	lines []conversationLine
	input string
	done  bool
	err   error
}

func newRunModel(ctrl *core.Controller, sessionID string) runModel {
	m := runModel{ctrl: ctrl, sessionID: sessionID}
	greeting := "Welcome! I need a few details to get you onboarded. What is your full name?"
	m.lines = append(m.lines, conversationLine{speaker: models.SpeakerAgent, text: greeting})
	// The greeting is part of the conversation; log it like the driver would.
	_ = ctrl.LogMessage(sessionID, models.SpeakerAgent, greeting)
	return m
}

func (m runModel) Init() tea.Cmd {
	return nil
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.done {
			return m, tea.Quit
		}
		return m.submit(), nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(keyMsg.Runes)
	}
	return m, nil
}

func (m runModel) submit() runModel {
	text := m.input
	m.input = ""

	kind, ok, err := m.ctrl.NextField(m.sessionID)
	if err != nil {
		m.err = err
		return m
	}
	if !ok {
		return m.finish()
	}

	m.lines = append(m.lines, conversationLine{speaker: models.SpeakerUser, text: text})
	result, err := m.ctrl.SubmitField(m.sessionID, kind, text)
	if err != nil {
		m.err = err
		return m
	}
	m.lines = append(m.lines, conversationLine{speaker: models.SpeakerAgent, text: result.Reply})

	if result.Completed {
		return m.finish()
	}
	return m
}

func (m runModel) finish() runModel {
	summary, err := m.ctrl.Summary(m.sessionID)
	if err != nil {
		m.err = err
		return m
	}
	m.lines = append(m.lines, conversationLine{speaker: models.SpeakerAgent, text: summary.Text})
	_ = m.ctrl.LogMessage(m.sessionID, models.SpeakerAgent, summary.Text)
	m.done = true
	return m
}

func (m runModel) View() string {
	s := runTitleStyle.Render("onboard session "+m.sessionID) + "\n\n"

	for _, line := range m.lines {
		switch line.speaker {
		case models.SpeakerAgent:
			s += runAgentStyle.Render("agent ") + line.text + "\n"
		default:
			s += runUserStyle.Render("you   ") + line.text + "\n"
		}
	}

	if m.err != nil {
		s += "\n" + runHintStyle.Render("error: "+m.err.Error()) + "\n"
	}

	if m.done {
		s += "\n" + runDoneStyle.Render("Onboarding complete.") + " " +
			runHintStyle.Render("Press enter to exit.") + "\n"
		return s
	}

	s += "\n> " + m.input + "█\n"
	s += runHintStyle.Render("enter to submit · esc to quit") + "\n"
	return s
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a local interactive onboarding session",
	Long: `Run an onboarding session in the terminal, standing in for the voice
conversation driver. Answers are validated, stored, and persisted exactly as
they would be over MCP.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Ctrl == nil {
			return fmt.Errorf("controller not initialized")
		}

		sessionID, err := Ctrl.StartSession()
		if err != nil {
			return fmt.Errorf("starting session: %w", err)
		}

		p := tea.NewProgram(newRunModel(Ctrl, sessionID))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running onboarding UI: %w", err)
		}

		fmt.Printf("Session %s persisted under %s\n", sessionID, BasePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
