package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/entityhub/am"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage entityhub configuration",
	Long: `am - Manage entityhub configuration ("I am")

Display and check entityhub configuration settings.

Configuration sources (in order of precedence):
1. Environment variables (ENTITYHUB_* prefix)
2. Project config (./entityhub.toml, searched upwards)
3. User config (~/.entityhub/entityhub.toml)
4. System config (/etc/entityhub/entityhub.toml)
5. Default values

Examples:
  entityhub am show                    # Show current configuration
  entityhub am show --format json      # Show configuration in JSON format
  entityhub am get yard.id             # Get specific config value
  entityhub am validate                # Validate current configuration
  entityhub am check ./entityhub.toml  # Report unknown keys in a file`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective entityhub configuration merged from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, yard.max_query_results)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each setting is loaded from",
	RunE:  runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Long: `Write the effective configuration as TOML, by default to ./` + am.ProjectConfigName + `.
An existing file is kept as a backup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAmInit,
}

var amCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check a config file for unknown keys",
	Long: `Decode a config file strictly and list keys no setting consumes.

Loading ignores unknown keys, so a typo such as yard.max_query_result
silently keeps the default. check reports them.`,
	Args: cobra.ExactArgs(1),
	RunE: runAmCheck,
}

var (
	configFormat string
	validateFile string
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amValidateCmd.Flags().StringVar(&validateFile, "file", "", "Validate this file instead of the merged configuration")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amCheckCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# entityhub configuration\n%s", string(data))

	case "toml":
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Printf("# entityhub configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	fmt.Println(am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	load := am.Load
	if validateFile != "" {
		load = func() (*am.Config, error) { return am.LoadFromFile(validateFile) }
	}
	cfg, err := load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	pterm.Println(pterm.LightGreen("✓ Configuration is valid"))
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.ProjectConfigName
	if len(args) == 1 {
		path = args[0]
	}

	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := am.Save(cfg, path); err != nil {
		return err
	}
	pterm.Println(pterm.LightGreen("✓ Wrote " + path))
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	settings := am.Introspect(am.GetViper())
	sort.SliceStable(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

	data := pterm.TableData{{"Key", "Value", "Source", "Path"}}
	for _, s := range settings {
		data = append(data, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runAmCheck(cmd *cobra.Command, args []string) error {
	result, err := am.CheckFile(args[0])
	if result != nil {
		for _, key := range result.UnknownKeys {
			pterm.Printf("%s unknown key %s\n", pterm.Yellow("⚠"), key)
		}
	}
	if err != nil {
		return err
	}

	if len(result.UnknownKeys) > 0 {
		return fmt.Errorf("%s has %d unknown key(s)", result.Path, len(result.UnknownKeys))
	}
	pterm.Println(pterm.LightGreen("✓ " + result.Path + " is valid"))
	return nil
}
