package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ytclips/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/ytclips/config (or
$XDG_CONFIG_HOME/ytclips/config). Values in the file take precedence over
environment variables.

Supported settings:
  data-dir         Root of the item tree and catalog (env: DATA_DIR)
  language         Transcription language, ISO 639-1 (env: TRANSCRIBE_LANGUAGE)
  split-format     Clip format: wav, mp3, ogg (env: SPLIT_FORMAT)
  youtube-api-key  YouTube Data API key (env: YOUTUBE_API_KEY)
  openai-api-key   OpenAI API key (env: OPENAI_API_KEY)`,
		Example: `  ytclips config set data-dir ~/ytclips
  ytclips config set openai-api-key sk-...
  ytclips config get language
  ytclips config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is validated before it is written: languages must be ISO 639-1
codes, API keys must have the provider's prefix, and data-dir is created if
it doesn't exist. Surrounding quotes from pasted values are removed.`,
		Example: `  ytclips config set data-dir ~/ytclips
  ytclips config set split-format mp3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value from the config file, or from the environment when the file
doesn't set it. Prints nothing if neither does. API keys are masked.`,
		Example: `  ytclips config get data-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Long:    `List the values from the config file and environment overrides. API keys are masked.`,
		Example: `  ytclips config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

func runConfigSet(env *Env, key, value string) error {
	if key == config.KeyDataDir {
		value = config.ExpandPath(config.Clean(value))
	}
	if err := config.Save(key, value); err != nil {
		return err
	}

	shown, _ := config.Validate(key, value)
	if config.IsSecret(key) {
		shown = config.Mask(shown)
	}
	_, _ = fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, shown)
	return nil
}

func runConfigGet(env *Env, key string) error {
	value, source, err := lookupConfig(env, key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	if config.IsSecret(key) {
		value = config.Mask(value)
	}
	if source != "" {
		value += " " + source
	}
	_, _ = fmt.Fprintln(env.Stdout, value)
	return nil
}

func runConfigList(env *Env) error {
	var lines []string
	for _, key := range config.Keys() {
		value, source, err := lookupConfig(env, key)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		if config.IsSecret(key) {
			value = config.Mask(value)
		}
		line := key + "=" + value
		if source != "" {
			line += " " + source
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		_, _ = fmt.Fprintln(env.Stdout, "No configuration set.")
		_, _ = fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			_, _ = fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}
	_, _ = fmt.Fprintln(env.Stdout, strings.Join(lines, "\n"))
	return nil
}

// lookupConfig returns the file value of key, falling back to the
// environment. source is "(from env)" for the fallback.
func lookupConfig(env *Env, key string) (value, source string, err error) {
	value, err = config.Get(key)
	if err != nil {
		return "", "", err
	}
	if value != "" {
		return value, "", nil
	}
	name, _ := config.EnvName(key)
	if v := strings.TrimSpace(env.Getenv(name)); v != "" {
		return v, "(from env)", nil
	}
	return "", "", nil
}
