package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/linkbridge/internal/lookup"
	"github.com/dbsmedya/linkbridge/internal/migrate"
)

var (
	validateFile         string
	validateFormat       string
	validateResource     string
	validateLookupConfig string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Decode a sample body without contacting any endpoint",
	Long: `Validate runs the decode phase of the import pipeline against a local
file and reports decode errors, without issuing any outbound HTTP call.
Useful for checking a hand-written or exported body before feeding it
to "linkbridge serve"'s /import route.

Example:
  linkbridge validate --file export.json --type json`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "",
		"Path to the body to decode (required)")
	validateCmd.MarkFlagRequired("file")

	validateCmd.Flags().StringVarP(&validateFormat, "type", "t", "json",
		"Format: json, csv, or mermaid")
	validateCmd.Flags().StringVar(&validateResource, "resource", "records",
		"Resource type, used by the mermaid codec's labels")
	validateCmd.Flags().StringVar(&validateLookupConfig, "lookup-config", "",
		"JSON text overriding lookup field policy")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(validateFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", validateFile, err)
	}

	var overrides map[string][]string
	if validateLookupConfig != "" {
		overrides, err = lookup.ParseConfig([]byte(validateLookupConfig))
		if err != nil {
			return fmt.Errorf("invalid lookup config: %w", err)
		}
	}
	policy := lookup.NewPolicy(overrides)

	c, err := migrate.NewCodec(validateFormat, migrate.CodecOptions{
		ResourceType: validateResource,
		Policy:       policy,
	})
	if err != nil {
		return err
	}

	records, err := c.Decode(body)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	cmd.Printf("OK: decoded %d record(s) from %s\n", len(records), validateFile)
	return nil
}
