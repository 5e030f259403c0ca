package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/ten99policy/ten99policy-go/internal/constants"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// Config represents the CLI configuration.
type Config struct {
	APIBase     string `json:"api_base,omitempty"    yaml:"api_base,omitempty"`
	APIKey      string `json:"api_key,omitempty"     yaml:"api_key,omitempty"`
	APIVersion  string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Output      string `json:"output,omitempty"      yaml:"output,omitempty"`

	// Cache selects the response cache backend: "memory", "nats" or empty.
	Cache   string `json:"cache,omitempty"    yaml:"cache,omitempty"`
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
}

// settableKeys lists the keys accepted by "config set".
var settableKeys = []string{"api_base", "api_version", "environment", "output", "cache", "nats_url"}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage the ten99policy CLI configuration stored in ~/.ten99policy/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigSetKeyCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective CLI configuration with the API key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			config.APIKey = maskSecret(config.APIKey)

			return writeValue(cmd.OutOrStdout(), config, "", func() error {
				return displayConfigTable(cmd.OutOrStdout(), config)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set one of: " + strings.Join(settableKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", args[0], args[1])

			return nil
		},
	}
}

func newConfigSetKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [API_KEY]",
		Short: "Store the API key",
		Long:  "Store the secret API key. Without an argument the key is read from the terminal without echo.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var apiKey string

			if len(args) == 1 {
				apiKey = args[0]
			} else {
				prompted, err := promptSecret(cmd.ErrOrStderr(), "API key: ")
				if err != nil {
					return err
				}

				apiKey = prompted
			}

			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				return constants.ErrEmptyAPIKey
			}

			config := loadConfig()
			config.APIKey = apiKey

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API key %s saved\n", maskSecret(apiKey))

			return nil
		},
	}
}

func promptSecret(prompt io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 -- file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", constants.ErrNotATerminal
	}

	_, _ = fmt.Fprint(prompt, label)

	secret, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(prompt)

	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(secret), nil
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "api_base":
		config.APIBase = value
	case "api_version":
		config.APIVersion = value
	case "environment":
		config.Environment = value
	case "output":
		switch value {
		case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		default:
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, value)
		}

		config.Output = value
	case "cache":
		switch policy.CacheType(value) {
		case policy.CacheTypeMemory, policy.CacheTypeNATS, policy.CacheTypeNone:
		default:
			return fmt.Errorf("%w: %s", policy.ErrUnsupportedCacheType, value)
		}

		config.Cache = value
	case "nats_url":
		config.NATSURL = value
	default:
		return fmt.Errorf("%w: %s. Valid keys: %s", constants.ErrUnknownConfigKey, key, strings.Join(settableKeys, ", "))
	}

	return nil
}

// loadConfig reads the effective configuration from viper: flags, then
// TEN99POLICY_* environment variables, then the config file.
func loadConfig() *Config {
	return &Config{
		APIBase:     viper.GetString("api_base"),
		APIKey:      viper.GetString("api_key"),
		APIVersion:  viper.GetString("api_version"),
		Environment: viper.GetString("environment"),
		Output:      viper.GetString("output"),
		Cache:       viper.GetString("cache"),
		NATSURL:     viper.GetString("nats_url"),
	}
}

// configFilePath returns the file the configuration is written to.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName+".yml"), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func displayConfigTable(out io.Writer, config *Config) error {
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	_ = table.Append("API Base", valueOrDefault(config.APIBase, policy.DefaultAPIBase))
	_ = table.Append("API Key", valueOrDefault(config.APIKey, NotAvailable))
	_ = table.Append("API Version", valueOrDefault(config.APIVersion, NotAvailable))
	_ = table.Append("Environment", valueOrDefault(config.Environment, NotAvailable))
	_ = table.Append("Output", valueOrDefault(config.Output, constants.FormatTable))
	_ = table.Append("Cache", valueOrDefault(config.Cache, string(policy.CacheTypeNone)))

	if config.NATSURL != "" {
		_ = table.Append("NATS URL", config.NATSURL)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
