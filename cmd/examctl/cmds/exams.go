package cmds

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "List supported exams and their upload requirements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := cfg.Catalog()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tMAX IMAGE\tMAX DOC\tFORMATS")
		for _, e := range catalog.All() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.MaxImageSize, e.MaxDocSize, e.FormatsLabel())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(examsCmd)
}
