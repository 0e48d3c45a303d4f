package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FOCUSSHOT_CAPTURE_BACKEND
const EnvPrefix = "FOCUSSHOT"

// LoadEnv loads the given .env files into the process environment. Missing
// files are skipped; variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	logger.WithComponent("config").Debug().Strs("files", existing).Msg("Loaded env files")
	return nil
}

// NewViper returns a viper instance reading FOCUSSHOT_* variables, with dots in
// keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// overridable lists the keys accepted from flags and the environment
var overridable = []string{
	"server_port",
	"log_level",
	"capture.backend",
	"capture.timeout_seconds",
	"capture.display",
	"output.directory",
	"output.use_save_dialog",
	"permissions.filesystem",
	"permissions.clipboard",
	"window.host_class",
}

// ApplyOverrides copies flag/env values found in v over the loaded config
// without persisting them.
func (m *Manager) ApplyOverrides(v *viper.Viper) error {
	cfg := m.Get()
	applied := 0
	for _, key := range overridable {
		if !v.IsSet(key) {
			continue
		}
		raw := v.GetString(key)
		if raw == "" || (key == "server_port" && raw == "0") {
			continue
		}
		if err := setKey(cfg, key, raw); err != nil {
			return err
		}
		applied++
	}
	if applied == 0 {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Set parses value for key and persists the result.
func (m *Manager) Set(key, value string) error {
	cfg := m.Get()
	if err := setKey(cfg, key, value); err != nil {
		return err
	}
	return m.Update(cfg)
}

// Lookup returns the string form of a config key.
func (m *Manager) Lookup(key string) (string, error) {
	cfg := m.Get()
	switch key {
	case "server_port":
		return fmt.Sprint(cfg.ServerPort), nil
	case "log_level":
		return cfg.LogLevel, nil
	case "capture.backend":
		return cfg.Capture.Backend, nil
	case "capture.timeout_seconds":
		return fmt.Sprint(cfg.Capture.TimeoutSeconds), nil
	case "capture.display":
		return fmt.Sprint(cfg.Capture.Display), nil
	case "output.directory":
		return cfg.Output.Directory, nil
	case "output.use_save_dialog":
		return fmt.Sprint(cfg.Output.UseSaveDialog), nil
	case "editor.stroke_color":
		return cfg.Editor.StrokeColor, nil
	case "editor.stroke_width":
		return fmt.Sprint(cfg.Editor.StrokeWidth), nil
	case "editor.blur_sigma":
		return fmt.Sprint(cfg.Editor.BlurSigma), nil
	case "editor.history_limit":
		return fmt.Sprint(cfg.Editor.HistoryLimit), nil
	case "editor.mosaic.divisor":
		return fmt.Sprint(cfg.Editor.Mosaic.Divisor), nil
	case "editor.mosaic.min_block":
		return fmt.Sprint(cfg.Editor.Mosaic.MinBlock), nil
	case "editor.mosaic.max_block":
		return fmt.Sprint(cfg.Editor.Mosaic.MaxBlock), nil
	case "permissions.filesystem":
		return cfg.Permissions.Filesystem, nil
	case "permissions.clipboard":
		return cfg.Permissions.Clipboard, nil
	case "window.host_class":
		return cfg.Window.HostClass, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

func setKey(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "server_port":
		err = scanInt(value, &cfg.ServerPort)
	case "log_level":
		switch value {
		case "trace", "debug", "info", "warn", "error":
			cfg.LogLevel = value
		default:
			return fmt.Errorf("invalid log level: %s (use: trace, debug, info, warn, error)", value)
		}
	case "capture.backend":
		cfg.Capture.Backend = value
	case "capture.timeout_seconds":
		err = scanInt(value, &cfg.Capture.TimeoutSeconds)
	case "capture.display":
		err = scanInt(value, &cfg.Capture.Display)
	case "output.directory":
		cfg.Output.Directory = value
	case "output.use_save_dialog":
		_, err = fmt.Sscanf(value, "%t", &cfg.Output.UseSaveDialog)
	case "editor.stroke_color":
		cfg.Editor.StrokeColor = value
	case "editor.stroke_width":
		err = scanInt(value, &cfg.Editor.StrokeWidth)
	case "editor.blur_sigma":
		_, err = fmt.Sscanf(value, "%g", &cfg.Editor.BlurSigma)
	case "editor.history_limit":
		err = scanInt(value, &cfg.Editor.HistoryLimit)
	case "editor.mosaic.divisor":
		err = scanInt(value, &cfg.Editor.Mosaic.Divisor)
	case "editor.mosaic.min_block":
		err = scanInt(value, &cfg.Editor.Mosaic.MinBlock)
	case "editor.mosaic.max_block":
		err = scanInt(value, &cfg.Editor.Mosaic.MaxBlock)
	case "permissions.filesystem":
		cfg.Permissions.Filesystem = value
	case "permissions.clipboard":
		cfg.Permissions.Clipboard = value
	case "window.host_class":
		cfg.Window.HostClass = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return nil
}

func scanInt(value string, dst *int) error {
	_, err := fmt.Sscanf(value, "%d", dst)
	return err
}

// Watch reloads the config file whenever it is written and hands the new
// config to onChange.
func (m *Manager) Watch(onChange func(*Config)) {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log := logger.WithComponent("config")
		if err := m.Reload(); err != nil {
			log.Warn().Err(err).Str("path", e.Name).Msg("Ignoring invalid config change")
			return
		}
		log.Info().Str("path", e.Name).Msg("Config reloaded")
		if onChange != nil {
			onChange(m.Get())
		}
	})
	v.WatchConfig()
}
