package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/linkbridge/internal/graph"
	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/lookup"
	"github.com/dbsmedya/linkbridge/internal/migrate"
)

// outputWriter is used for printing output, can be overridden in tests.
var outputWriter io.Writer = os.Stdout

func setOutputWriter(w io.Writer) {
	outputWriter = w
}

func resetOutputWriter() {
	outputWriter = os.Stdout
}

var (
	planFile         string
	planFormat       string
	planResource     string
	planDetectCycles bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the topological import order for a document-format file",
	Long: `Plan decodes a document-format file, flattens any nested tree shape,
and runs the topological sorter (C5) to display the order records
would be POSTed in during an import, without contacting any endpoint.

The plan shows:
  - Decoded record count
  - Topological order (parents before children)
  - Cycle report, if any self-FK cycles are present

Example:
  linkbridge plan --file export.json`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "",
		"Path to a document-format (JSON) file (required)")
	planCmd.MarkFlagRequired("file")

	planCmd.Flags().StringVarP(&planFormat, "type", "t", "json",
		"Format: json or mermaid")
	planCmd.Flags().StringVar(&planResource, "resource", "records",
		"Resource type label used for display only")
	planCmd.Flags().BoolVar(&planDetectCycles, "detect-cycles", true,
		"Run cycle detection over the parent_id graph")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(planFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", planFile, err)
	}

	c, err := migrate.NewCodec(planFormat, migrate.CodecOptions{
		ResourceType: planResource,
		Policy:       lookup.NewPolicy(nil),
	})
	if err != nil {
		return err
	}

	records, err := c.Decode(body)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	printHeader("Import Plan: %s", planFile)
	fmt.Fprintln(outputWriter)
	printSection("Overview")
	fmt.Fprintf(outputWriter, "  Resource:      %s\n", planResource)
	fmt.Fprintf(outputWriter, "  Total Records: %d\n", len(records))

	ids := make([]string, len(records))
	parentIDs := make([]string, len(records))
	byID := make(map[string]*linkrecord.Record, len(records))
	for i, rec := range records {
		id := rec.OriginalID()
		ids[i] = id
		parentRef, _ := rec.ParentRef()
		parentIDs[i] = parentRef
		if id != "" {
			byID[id] = rec
		}
	}

	g := graph.Build(ids, parentIDs)
	order, cycleInfo := g.TopologicalSort(planDetectCycles)

	fmt.Fprintln(outputWriter)
	printSection("Topological Order (parents before children)")
	for i, id := range order {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		node := g.GetNode(id)
		name := recordLabel(rec)
		if node != nil && node.IsRoot {
			fmt.Fprintf(outputWriter, "  [%d] %s (root)\n", i+1, name)
		} else {
			fmt.Fprintf(outputWriter, "  [%d] %s\n", i+1, name)
		}
	}

	if cycleInfo != nil {
		fmt.Fprintln(outputWriter)
		printSection("Cycle Report")
		fmt.Fprintf(outputWriter, "  %d node(s) involved in a cycle: %s\n",
			len(cycleInfo.UnprocessedNodes), strings.Join(cycleInfo.UnprocessedNodes, ", "))
	}

	return nil
}

func recordLabel(rec *linkrecord.Record) string {
	if name := rec.GetString("name"); name != "" {
		return fmt.Sprintf("%s (%s)", name, rec.OriginalID())
	}
	return rec.OriginalID()
}

func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}
