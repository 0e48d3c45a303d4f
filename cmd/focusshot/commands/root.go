package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/focusshot/internal/config"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

var (
	cfgFile string
	pretty  bool
	envFile string

	// v carries flag and FOCUSSHOT_* environment overrides
	v = config.NewViper()

	rootCmd = &cobra.Command{
		Use:   "focusshot",
		Short: "FocusShot - region screenshots with annotation",
		Long: `FocusShot captures a display, lets you select a region in a full-screen
overlay, annotate it and save or copy the result.

Features:
  • X11, xdg-desktop-portal and generic capture backends
  • Drag, move and resize a selection
  • Rectangle, ellipse, arrow, pen and text annotations
  • Mosaic, blur and crop effects with undo
  • Save to disk, through the file chooser, or to the clipboard
  • REST and WebSocket API for integration`,
		SilenceUsage:      true,
		PersistentPreRunE: initEnv,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/focusshot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading FOCUSSHOT_* variables")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "capture backend (auto, x11, portal, generic)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "human-readable console logs")

	v.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("capture.backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func initEnv(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	logger.Init(v.GetString("log_level"), pretty)
	return nil
}

// loadConfig reads the config file and layers flag and environment overrides
// on top without persisting them.
func loadConfig() (*config.Manager, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	if err := mgr.ApplyOverrides(v); err != nil {
		return nil, fmt.Errorf("invalid override: %w", err)
	}
	logger.SetLevel(mgr.Get().LogLevel)
	logger.WithComponent("config").Debug().
		Str("path", mgr.GetConfigPath()).
		Str("backend", mgr.Get().Capture.Backend).
		Msg("Configuration loaded")
	return mgr, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
