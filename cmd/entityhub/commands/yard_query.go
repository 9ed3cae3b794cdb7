package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var yardFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find entities by field constraints",
	Long: `Find entities matching every given constraint.

Constraint flags take field=value and may repeat. Repeating a flag for
the same field lists alternatives; --all requires every listed value.
Values read like YAML scalars: 36 is an integer, true a boolean.

Examples:
  entityhub yard find --where urn:age=36
  entityhub yard find --type urn:born=Date --select urn:name
  entityhub yard find --ref urn:knows=urn:babbage --refs
  entityhub yard find --text urn:name='lov*' --wildcard --lang en
  entityhub yard find --range urn:age=18..65 --inclusive
  entityhub yard find --exists urn:email --absent urn:deceased`,
	RunE: runYardFind,
}

var yardStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show yard statistics",
	RunE:  runYardStats,
}

var yardExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every fact of the yard as N-Quads",
	RunE:  runYardExport,
}

var yardImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Read N-Quads into the yard",
	Long: `Read N-Quads into the yard. The graph label of each quad is ignored;
facts land in the yard's graph. Entities need their marker fact to be
found, so import exports of entityhub yards.`,
	Args: cobra.ExactArgs(1),
	RunE: runYardImport,
}

var (
	findOpts    findOptions
	findRefs    bool
	findFormat  string
	statsFormat string
	exportFile  string
)

func init() {
	f := yardFindCmd.Flags()
	f.StringSliceVar(&findOpts.selects, "select", nil, "Fields to include in results")
	f.StringArrayVar(&findOpts.where, "where", nil, "field=value: field holds value")
	f.StringArrayVar(&findOpts.types, "type", nil, "field=datatype: field holds a value of datatype")
	f.StringArrayVar(&findOpts.refs, "ref", nil, "field=uri: field references uri")
	f.StringArrayVar(&findOpts.texts, "text", nil, "field=text: field text contains the word(s)")
	f.StringArrayVar(&findOpts.ranges, "range", nil, "field=lower..upper: value lies in range, either bound may be empty")
	f.StringArrayVar(&findOpts.exists, "exists", nil, "Field must be present")
	f.StringArrayVar(&findOpts.absent, "absent", nil, "Field must be missing")
	f.StringSliceVar(&findOpts.languages, "lang", nil, "Languages of --text matches (empty string for untagged)")
	f.BoolVar(&findOpts.wildcard, "wildcard", false, "Treat --text as wildcard patterns (* and ?)")
	f.BoolVar(&findOpts.regex, "regex", false, "Treat --text as regular expressions")
	f.BoolVar(&findOpts.caseSensitive, "case-sensitive", false, "Match --text case-sensitively")
	f.BoolVar(&findOpts.all, "all", false, "Require all repeated values instead of any")
	f.BoolVar(&findOpts.inclusive, "inclusive", false, "Include --range bounds")
	f.IntVar(&findOpts.limit, "limit", 0, "Maximum results (default from yard.default_query_results)")
	f.IntVar(&findOpts.offset, "offset", 0, "Results to skip")
	f.BoolVar(&findRefs, "refs", false, "Print matching ids only")
	f.StringVar(&findFormat, "format", "yaml", "Output format: yaml, json, toml")

	yardStatsCmd.Flags().StringVar(&statsFormat, "format", "", "Output format: json, yaml (default: table)")
	yardExportCmd.Flags().StringVarP(&exportFile, "output", "o", "-", "File to write, - for stdout")

	YardCmd.AddCommand(yardFindCmd)
	YardCmd.AddCommand(yardStatsCmd)
	YardCmd.AddCommand(yardExportCmd)
	YardCmd.AddCommand(yardImportCmd)
}

func runYardFind(cmd *cobra.Command, args []string) error {
	q, err := buildQuery(findOpts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if findRefs {
		refs, err := s.yard.FindReferences(ctx, q)
		if err != nil {
			return err
		}
		for id := range refs.All() {
			fmt.Fprintln(out, id)
		}
		printPage(refs.Len(), refs.Limit, refs.Offset)
		return nil
	}

	found, err := s.yard.Find(ctx, q)
	if err != nil {
		return err
	}
	docs := make([]entityDoc, 0, found.Len())
	for r := range found.All() {
		docs = append(docs, newEntityDoc(r))
	}
	if err := writeEntityDocs(out, findFormat, docs); err != nil {
		return err
	}
	printPage(found.Len(), found.Limit, found.Offset)
	return nil
}

// printPage reports on stderr when a page is full, so more results may follow
func printPage(n, limit, offset int) {
	if limit > 0 && n == limit {
		pterm.Fprintln(os.Stderr, pterm.Gray(fmt.Sprintf("→ %d results (limit reached, use --offset %d for more)", n, offset+n)))
	}
}

func runYardStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return err
	}

	switch statsFormat {
	case "json":
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats to JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	case "yaml":
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(stats)
	case "":
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml)", statsFormat)
	}

	cfg := s.yard.Config()
	pterm.Println(pterm.Bold.Sprint("Yard " + cfg.Name))
	pterm.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	data := pterm.TableData{
		{"ID", stats.YardID},
		{"Graph", stats.Graph},
		{"Read-only", fmt.Sprint(stats.ReadOnly)},
		{"Access mode", cfg.AccessMode.String()},
		{"Entities", fmt.Sprint(stats.Entities)},
		{"Subjects", fmt.Sprint(stats.Subjects)},
		{"Facts", fmt.Sprint(stats.Triples)},
		{"Fields", fmt.Sprint(stats.Fields)},
	}
	return pterm.DefaultTable.WithData(data).Render()
}

func runYardExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var out io.Writer = cmd.OutOrStdout()
	if exportFile != "-" {
		f, err := os.Create(exportFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportFile, err)
		}
		defer f.Close()
		out = f
	}

	n, err := s.graph.Export(ctx, out)
	if err != nil {
		return err
	}
	pterm.Fprintln(os.Stderr, pterm.LightGreen(fmt.Sprintf("✓ Exported %d facts from %s", n, s.graph.Name())))
	return nil
}

func runYardImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.graph.Import(ctx, f)
	if err != nil {
		return err
	}
	pterm.Println(pterm.LightGreen(fmt.Sprintf("✓ Imported %d facts into %s", n, s.graph.Name())))
	return nil
}
