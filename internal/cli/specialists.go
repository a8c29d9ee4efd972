package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/panel/internal/specialist"
)

var flagSpecialistsJSON bool

var specialistsCmd = &cobra.Command{
	Use:   "specialists",
	Short: "List the review specialists",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles := specialist.Profiles()
		if flagSpecialistsJSON {
			data, err := json.MarshalIndent(profiles, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(data))
			return nil
		}
		for _, p := range profiles {
			fmt.Fprintf(os.Stdout, "%-12s %s\n", p.Category, p.Name)
			fmt.Fprintf(os.Stdout, "%-12s %s (%s)\n\n", "", p.Description, strings.Join(p.FocusAreas, ", "))
		}
		return nil
	},
}

func init() {
	specialistsCmd.Flags().BoolVar(&flagSpecialistsJSON, "json", false, "Print as JSON")
}
