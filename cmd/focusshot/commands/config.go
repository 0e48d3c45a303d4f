package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/focusshot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage FocusShot configuration",
	Long:  `View and manage FocusShot configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration, including overrides from flags and
FOCUSSHOT_* environment variables.`,
	Example: `  # Show configuration as YAML (default)
  focusshot config show

  # Show configuration as JSON
  focusshot config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long:  `Set a specific configuration value and save the config file.`,
	Example: `  # Set server port
  focusshot config set server_port 9090

  # Prefer the desktop portal for capture
  focusshot config set capture.backend portal

  # Use a thicker red stroke
  focusshot config set editor.stroke_color "#ff0000"
  focusshot config set editor.stroke_width 4`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get server port
  focusshot config get server_port

  # Get the mosaic block divisor
  focusshot config get editor.mosaic.divisor`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	return writeConfig(cmd, configMgr.Get())
}

func writeConfig(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

// set and get work on the file alone so overrides never leak into it.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := configMgr.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := configMgr.Lookup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configMgr.GetConfigPath())
	return nil
}
