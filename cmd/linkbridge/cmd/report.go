package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/linkbridge/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Pretty-print a saved import report",
	Long: `Report reads the JSON body POST /import returned (typically saved to
disk by whatever called it) and renders it as a colorized console
summary: totals, the session id map, and any errors or warnings.

Example:
  linkbridge report import-result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	r, err := report.Decode(data)
	if err != nil {
		return err
	}

	report.Print(cmd.OutOrStdout(), r)
	return nil
}
