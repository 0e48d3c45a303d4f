package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"gopkg.in/yaml.v3"
)

const appName = "focusshot"

// Capture backend names accepted by capture.backend
const (
	BackendAuto    = "auto"
	BackendX11     = "x11"
	BackendPortal  = "portal"
	BackendGeneric = "generic"
)

// Config represents the application configuration
type Config struct {
	ServerPort  int               `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel    string            `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	Capture     CaptureConfig     `json:"capture" yaml:"capture" mapstructure:"capture"`
	Output      OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
	Editor      EditorConfig      `json:"editor" yaml:"editor" mapstructure:"editor"`
	Permissions PermissionsConfig `json:"permissions" yaml:"permissions" mapstructure:"permissions"`
	Window      WindowConfig      `json:"window" yaml:"window" mapstructure:"window"`
}

// CaptureConfig selects and bounds the capture backend
type CaptureConfig struct {
	Backend        string `json:"backend" yaml:"backend" mapstructure:"backend"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	// Display is the default display index; -1 means the primary display
	Display int `json:"display" yaml:"display" mapstructure:"display"`
}

// OutputConfig controls where saved screenshots go
type OutputConfig struct {
	Directory     string `json:"directory" yaml:"directory" mapstructure:"directory"`
	UseSaveDialog bool   `json:"use_save_dialog" yaml:"use_save_dialog" mapstructure:"use_save_dialog"`
}

// EditorConfig holds interaction and effect tunables
type EditorConfig struct {
	StrokeColor  string       `json:"stroke_color" yaml:"stroke_color" mapstructure:"stroke_color"`
	StrokeWidth  int          `json:"stroke_width" yaml:"stroke_width" mapstructure:"stroke_width"`
	FontScale    int          `json:"font_scale" yaml:"font_scale" mapstructure:"font_scale"`
	HandleRadius int          `json:"handle_radius" yaml:"handle_radius" mapstructure:"handle_radius"`
	MinSelection int          `json:"min_selection" yaml:"min_selection" mapstructure:"min_selection"`
	MinSize      int          `json:"min_size" yaml:"min_size" mapstructure:"min_size"`
	BlurSigma    float64      `json:"blur_sigma" yaml:"blur_sigma" mapstructure:"blur_sigma"`
	HistoryLimit int          `json:"history_limit" yaml:"history_limit" mapstructure:"history_limit"`
	Mosaic       MosaicConfig `json:"mosaic" yaml:"mosaic" mapstructure:"mosaic"`
}

// MosaicConfig is the block-size policy: clamp(max(w,h)/divisor, min, max)
type MosaicConfig struct {
	Divisor  int `json:"divisor" yaml:"divisor" mapstructure:"divisor"`
	MinBlock int `json:"min_block" yaml:"min_block" mapstructure:"min_block"`
	MaxBlock int `json:"max_block" yaml:"max_block" mapstructure:"max_block"`
}

// PermissionsConfig records capability grants for the output sinks
type PermissionsConfig struct {
	Filesystem string `json:"filesystem" yaml:"filesystem" mapstructure:"filesystem"`
	Clipboard  string `json:"clipboard" yaml:"clipboard" mapstructure:"clipboard"`
}

// WindowConfig identifies the host application window hidden during capture
type WindowConfig struct {
	// HostClass is matched against WM_CLASS; empty runs without a host window
	HostClass string `json:"host_class" yaml:"host_class" mapstructure:"host_class"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/focusshot/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultOutputDir returns the user's pictures directory plus Screenshots
func DefaultOutputDir() string {
	pictures := xdg.UserDirs.Pictures
	if pictures == "" {
		pictures = filepath.Join(xdg.Home, "Pictures")
	}
	return filepath.Join(pictures, "Screenshots")
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	configPath := configFile
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: configPath}

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("backend", m.config.Capture.Backend).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8090,
		LogLevel:   "info",
		Capture: CaptureConfig{
			Backend:        BackendAuto,
			TimeoutSeconds: 10,
			Display:        -1,
		},
		Output: OutputConfig{
			Directory: DefaultOutputDir(),
		},
		Editor: EditorConfig{
			StrokeColor:  "#ff0000",
			StrokeWidth:  3,
			FontScale:    2,
			HandleRadius: 8,
			MinSelection: 5,
			MinSize:      10,
			BlurSigma:    8,
			HistoryLimit: 10,
			Mosaic: MosaicConfig{
				Divisor:  20,
				MinBlock: 10,
				MaxBlock: 20,
			},
		},
		Permissions: PermissionsConfig{
			Filesystem: "granted",
			Clipboard:  "granted",
		},
	}
}

// Validate fills zero values from defaults and rejects values that cannot work
func (c *Config) Validate() error {
	d := Defaults()
	if c.ServerPort == 0 {
		c.ServerPort = d.ServerPort
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port %d", c.ServerPort)
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}

	switch c.Capture.Backend {
	case "":
		c.Capture.Backend = BackendAuto
	case BackendAuto, BackendX11, BackendPortal, BackendGeneric:
	default:
		return fmt.Errorf("invalid capture.backend %q (use auto, x11, portal or generic)", c.Capture.Backend)
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = d.Capture.TimeoutSeconds
	}

	if c.Output.Directory == "" {
		c.Output.Directory = d.Output.Directory
	}

	e := &c.Editor
	if e.StrokeColor == "" {
		e.StrokeColor = d.Editor.StrokeColor
	}
	if _, err := ParseColor(e.StrokeColor); err != nil {
		return fmt.Errorf("invalid editor.stroke_color: %w", err)
	}
	if e.StrokeWidth <= 0 {
		e.StrokeWidth = d.Editor.StrokeWidth
	}
	if e.FontScale <= 0 {
		e.FontScale = d.Editor.FontScale
	}
	if e.HandleRadius <= 0 {
		e.HandleRadius = d.Editor.HandleRadius
	}
	if e.MinSelection <= 0 {
		e.MinSelection = d.Editor.MinSelection
	}
	if e.MinSize <= 0 {
		e.MinSize = d.Editor.MinSize
	}
	if e.BlurSigma <= 0 {
		e.BlurSigma = d.Editor.BlurSigma
	}
	if e.HistoryLimit < 0 {
		e.HistoryLimit = 0
	}
	if e.Mosaic.Divisor <= 0 {
		e.Mosaic.Divisor = d.Editor.Mosaic.Divisor
	}
	if e.Mosaic.MinBlock <= 0 {
		e.Mosaic.MinBlock = d.Editor.Mosaic.MinBlock
	}
	if e.Mosaic.MaxBlock < e.Mosaic.MinBlock {
		e.Mosaic.MaxBlock = e.Mosaic.MinBlock
	}

	if c.Permissions.Filesystem == "" {
		c.Permissions.Filesystem = d.Permissions.Filesystem
	}
	if c.Permissions.Clipboard == "" {
		c.Permissions.Clipboard = d.Permissions.Clipboard
	}
	return nil
}

// ParseColor parses #rgb, #rrggbb or #rrggbbaa
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q must be #rgb, #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Reload re-reads the file, keeping the current config on failure
func (m *Manager) Reload() error {
	return m.load()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	cfg := m.Get()
	cfg.ServerPort = port
	return m.Update(cfg)
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	cfg := m.Get()
	cfg.LogLevel = level
	return m.Update(cfg)
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
