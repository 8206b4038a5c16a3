package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate <field> <value>",
	Short: "Check a value against a field's format rule",
	Long: `Run the field validator once, without touching any session.

Examples:

  onboard validate email alice@example.com
  onboard validate phone "+1 (415) 555-2671"
  onboard validate country Germny`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Ctrl == nil {
			return fmt.Errorf("controller not initialized")
		}

		kind, err := models.ParseFieldKind(args[0])
		if err != nil {
			return err
		}
		raw := strings.Join(args[1:], " ")

		outcome := Ctrl.Validator().Validate(kind, raw)
		if outcome.Accepted {
			fmt.Printf("valid %s: %s\n", kind, outcome.Value)
			return nil
		}
		fmt.Printf("invalid %s: %s\n", kind, outcome.Reason)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
