package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/constants"
	"github.com/jsphweid/chordscribe/model"
	"github.com/spf13/cobra"
)

var templatesJSON bool

func init() {
	templatesCmd.Flags().BoolVar(&templatesJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(templatesCmd)
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Prints the active chord templates",
	Long:  `Prints the chord templates analysis matches against, in tie-break order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := loadBank(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if templatesJSON {
			return json.NewEncoder(out).Encode(templateResults(bank))
		}
		for _, tpl := range bank.All() {
			var names []string
			for _, pc := range chord.PitchClasses(tpl.Vector) {
				names = append(names, constants.PitchClassNames[pc])
			}
			fmt.Fprintf(out, "%-6s %s\n", tpl.Label, strings.Join(names, " "))
		}
		return nil
	},
}

func templateResults(bank *chord.Bank) []model.TemplateResult {
	all := bank.All()
	res := make([]model.TemplateResult, 0, len(all))
	for _, tpl := range all {
		res = append(res, model.TemplateResult{Label: tpl.Label, PitchClasses: chord.PitchClasses(tpl.Vector)})
	}
	return res
}
