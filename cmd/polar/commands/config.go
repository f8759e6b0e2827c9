package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polarclient"
)

// Configuration keys settable through "config set".
const (
	configKeyServer = "server"
	configKeyAPI    = "api"
	configKeyOutput = "output"
)

// Config represents the CLI configuration file. The top-level keys share
// their names with the global flags, so viper resolves flag, environment and
// file values for them.
type Config struct {
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	API    string `json:"api,omitempty"    yaml:"api,omitempty"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Servers holds access tokens keyed by server name or endpoint URL.
	Servers map[string]*ServerConfig `json:"servers,omitempty" yaml:"servers,omitempty"`
}

// ServerConfig holds the credentials for one API server.
type ServerConfig struct {
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"     yaml:"last_updated,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the polar CLI configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the configuration file with access tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			config, err := loadConfigFile(path)
			if err != nil {
				return err
			}

			masked := maskConfig(config)

			return renderOutput(cmd.OutOrStdout(), masked, func(w io.Writer) error {
				return renderConfigTable(w, path, masked)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set one of: server (production, sandbox), api (endpoint URL), output (table, json, yaml)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(func(config *Config) error {
				return setConfigValue(config, args[0], args[1])
			})
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove one of: server, api, output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(func(config *Config) error {
				return setConfigValue(config, args[0], "")
			})
		},
	}
}

// setConfigValue validates and stores value under key. An empty value clears
// the key.
func setConfigValue(config *Config, key, value string) error {
	switch key {
	case configKeyServer:
		if value != "" && value != constants.ServerProduction && value != constants.ServerSandbox {
			return fmt.Errorf("%w: %q", constants.ErrUnknownServer, value)
		}

		config.Server = value
	case configKeyAPI:
		config.API = polarclient.NormalizeEndpoint(value)
	case configKeyOutput:
		if value != "" && !validOutputFormat(value) {
			return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, value)
		}

		config.Output = value
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func validOutputFormat(format string) bool {
	return slices.Contains([]string{constants.FormatTable, constants.FormatJSON, constants.FormatYAML}, format)
}

// configFilePath returns the --config file, the file viper loaded, or the
// default location under the user's home directory.
func configFilePath() (string, error) {
	if path := viper.GetString("config"); path != "" {
		return path, nil
	}

	if path := viper.ConfigFileUsed(); path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName), nil
}

// loadConfigFile reads the configuration at path. A missing file yields an
// empty configuration.
func loadConfigFile(path string) (*Config, error) {
	config := &Config{Servers: make(map[string]*ServerConfig)}

	// path comes from the --config flag or the user's home directory
	// #nosec G304
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Servers == nil {
		config.Servers = make(map[string]*ServerConfig)
	}

	return config, nil
}

func saveConfigFile(path string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func updateConfig(mutate func(*Config) error) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	config, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	err = mutate(config)
	if err != nil {
		return err
	}

	return saveConfigFile(path, config)
}

func maskConfig(config *Config) *Config {
	masked := *config
	masked.Servers = make(map[string]*ServerConfig, len(config.Servers))

	for name, server := range config.Servers {
		copied := *server
		if copied.Token != "" {
			copied.Token = constants.MaskedSecret
		}

		masked.Servers[name] = &copied
	}

	return &masked
}

func renderConfigTable(w io.Writer, path string, config *Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	_ = table.Append("Config file", path)
	_ = table.Append("Server", valueOrNA(config.Server))
	_ = table.Append("API endpoint", valueOrNA(config.API))
	_ = table.Append("Output", valueOrNA(config.Output))

	names := make([]string, 0, len(config.Servers))
	for name := range config.Servers {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		server := config.Servers[name]
		_ = table.Append("Token ("+name+")", valueOrNA(server.Token))

		if server.TokenExpiresAt != nil {
			_ = table.Append("Token expires ("+name+")", formatTime(*server.TokenExpiresAt))
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
