package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/model"
)

// YardCmd groups the entity commands
var YardCmd = &cobra.Command{
	Use:   "yard",
	Short: "Store, fetch, find and remove entities",
	Long: `yard - Store, fetch, find and remove entities

Every command works on the yard configured in yard.id (override with --yard).

Examples:
  entityhub yard put -f people.yaml                   # Store entities
  entityhub yard get urn:ada --format json            # Print an entity
  entityhub yard find --where urn:age=36 --select urn:name
  entityhub yard find --text urn:name='ada*' --wildcard --refs
  entityhub yard export -o backup.nq                  # Dump as N-Quads`,
}

var (
	databasePath string
	yardID       string
	outputFormat string
)

var yardGetCmd = &cobra.Command{
	Use:   "get <id>...",
	Short: "Print entities",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runYardGet,
}

var yardExistsCmd = &cobra.Command{
	Use:   "exists <id>",
	Short: "Report whether an entity is stored",
	Args:  cobra.ExactArgs(1),
	RunE:  runYardExists,
}

var yardPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Store entities read from YAML",
	Long: `Store entities read from a YAML file or stdin.

Storing replaces everything previously stored for an entity. With --update
every entity must already exist.

  - id: urn:ada
    fields:
      urn:name: {text: Ada Lovelace, lang: en}
      urn:age: 36
      urn:knows: {ref: urn:babbage}`,
	RunE: runYardPut,
}

var yardRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove entities",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runYardRm,
}

var yardCreateCmd = &cobra.Command{
	Use:   "create [id]",
	Short: "Create an empty entity, generating an id when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runYardCreate,
}

var yardClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every fact of the yard",
	RunE:  runYardClear,
}

var (
	putFile   string
	putUpdate bool
	clearYes  bool
)

func init() {
	YardCmd.PersistentFlags().StringVar(&databasePath, "db", "", "Database path (default from database.path)")
	YardCmd.PersistentFlags().StringVar(&yardID, "yard", "", "Yard id (default from yard.id)")

	yardGetCmd.Flags().StringVar(&outputFormat, "format", "yaml", "Output format: yaml, json, toml")
	yardPutCmd.Flags().StringVarP(&putFile, "file", "f", "-", "YAML file to read, - for stdin")
	yardPutCmd.Flags().BoolVar(&putUpdate, "update", false, "Fail on entities that are not stored yet")
	yardClearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm clearing the yard")

	YardCmd.AddCommand(yardGetCmd)
	YardCmd.AddCommand(yardExistsCmd)
	YardCmd.AddCommand(yardPutCmd)
	YardCmd.AddCommand(yardRmCmd)
	YardCmd.AddCommand(yardCreateCmd)
	YardCmd.AddCommand(yardClearCmd)
}

func runYardGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var docs []entityDoc
	for _, id := range args {
		r, err := s.yard.GetRepresentation(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			pterm.Printf("%s %s not found\n", pterm.Yellow("⚠"), id)
			continue
		}
		docs = append(docs, newEntityDoc(r))
	}
	if len(docs) == 0 {
		return fmt.Errorf("no entity found")
	}
	return writeEntityDocs(cmd.OutOrStdout(), outputFormat, docs)
}

func runYardExists(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.yard.IsRepresentation(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		pterm.Println(pterm.Gray("✗ " + args[0]))
		return fmt.Errorf("%s is not stored in yard %s", args[0], s.yard.ID())
	}
	pterm.Println(pterm.LightGreen("✓ " + args[0]))
	return nil
}

func runYardPut(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if putFile != "-" {
		f, err := os.Open(putFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", putFile, err)
		}
		defer f.Close()
		in = f
	}

	docs, err := readEntityDocs(in)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no entities in input")
	}

	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	reps := make([]*model.Representation, 0, len(docs))
	for _, doc := range docs {
		r, err := s.yard.CreateRepresentation(doc.ID)
		if err != nil {
			return err
		}
		if err := doc.apply(r); err != nil {
			return err
		}
		reps = append(reps, r)
	}

	write, verb := s.yard.StoreAll, "Stored"
	if putUpdate {
		write, verb = s.yard.UpdateAll, "Updated"
	}
	applied, err := write(ctx, reps)
	for _, r := range applied {
		pterm.Printf("%s %s\n", pterm.Gray("→"), r.ID())
	}
	if err != nil {
		logger.Warnw("Batch stopped early",
			logger.FieldYard, s.yard.ID(),
			logger.FieldCount, len(applied),
			logger.FieldBatchSize, len(reps),
			logger.FieldError, err)
		return fmt.Errorf("%d of %d entities applied: %w", len(applied), len(reps), err)
	}
	pterm.Println(pterm.LightGreen(fmt.Sprintf("✓ %s %d entities in yard %s", verb, len(applied), s.yard.ID())))
	return nil
}

func runYardRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.yard.RemoveAll(ctx, args); err != nil {
		return err
	}
	pterm.Println(pterm.LightGreen(fmt.Sprintf("✓ Removed %d entities", len(args))))
	return nil
}

func runYardCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	r, err := s.yard.Create(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), r.ID())
	return nil
}

func runYardClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return fmt.Errorf("clear removes every entity of the yard; pass --yes to confirm")
	}

	ctx := cmd.Context()
	s, err := openYard(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.yard.Clear(ctx); err != nil {
		return err
	}
	logger.Infow("Cleared yard", logger.FieldYard, s.yard.ID(), logger.FieldGraph, s.yard.GraphName())
	pterm.Println(pterm.LightGreen("✓ Cleared yard " + s.yard.ID()))
	return nil
}
