// Package config reads and writes the persistent settings file.
//
// The file lives at $XDG_CONFIG_HOME/ytclips/config (or ~/.config/ytclips/config)
// and uses dotenv syntax, so the same names work as environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/alnah/go-ytclips/internal/audio"
	"github.com/alnah/go-ytclips/internal/lang"
)

// Config keys as typed on the command line.
const (
	KeyDataDir       = "data-dir"
	KeyLanguage      = "language"
	KeySplitFormat   = "split-format"
	KeyYouTubeAPIKey = "youtube-api-key"
	KeyOpenAIAPIKey  = "openai-api-key"
)

// Names in the config file and the environment.
const (
	EnvDataDir       = "DATA_DIR"
	EnvLanguage      = "TRANSCRIBE_LANGUAGE"
	EnvSplitFormat   = "SPLIT_FORMAT"
	EnvYouTubeAPIKey = "YOUTUBE_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
)

// Defaults applied by Load when neither file nor environment sets a value.
const (
	DefaultDataDir  = "data"
	DefaultLanguage = "id"
)

// Key prefixes used to catch keys pasted into the wrong setting.
const (
	youtubeKeyPrefix = "AIza"
	openAIKeyPrefix  = "sk-"
)

var envNames = map[string]string{
	KeyDataDir:       EnvDataDir,
	KeyLanguage:      EnvLanguage,
	KeySplitFormat:   EnvSplitFormat,
	KeyYouTubeAPIKey: EnvYouTubeAPIKey,
	KeyOpenAIAPIKey:  EnvOpenAIAPIKey,
}

// Config holds the resolved settings.
type Config struct {
	DataDir       string
	Language      string
	SplitFormat   audio.Format
	YouTubeAPIKey string
	OpenAIAPIKey  string
}

// Keys returns the supported keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(envNames))
	for k := range envNames {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// EnvName returns the file/environment name of key.
func EnvName(key string) (string, error) {
	name, ok := envNames[key]
	if !ok {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return name, nil
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return key == KeyYouTubeAPIKey || key == KeyOpenAIAPIKey
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/ytclips.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ytclips"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ytclips"), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// readFile returns the file's entries, or an empty map if it doesn't exist.
func readFile() (map[string]string, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := godotenv.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return data, nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variables, then defaults.
func Load() (Config, error) {
	data, err := readFile()
	if err != nil {
		return Config{}, err
	}

	value := func(env, def string) string {
		if v := strings.TrimSpace(data[env]); v != "" {
			return v
		}
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DataDir:       ExpandPath(value(EnvDataDir, DefaultDataDir)),
		Language:      lang.Normalize(value(EnvLanguage, DefaultLanguage)),
		YouTubeAPIKey: value(EnvYouTubeAPIKey, ""),
		OpenAIAPIKey:  value(EnvOpenAIAPIKey, ""),
	}
	cfg.SplitFormat, err = audio.ParseFormat(value(EnvSplitFormat, string(audio.DefaultFormat)))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvSplitFormat, err)
	}
	if err := lang.Validate(cfg.Language); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvLanguage, err)
	}
	return cfg, nil
}

// Clean strips surrounding whitespace and quotes from a pasted value.
func Clean(value string) string {
	v := strings.TrimSpace(value)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

// Validate checks value for key and returns it in canonical form.
func Validate(key, value string) (string, error) {
	if _, err := EnvName(key); err != nil {
		return "", err
	}
	v := Clean(value)
	if v == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, key)
	}

	switch key {
	case KeyLanguage:
		if err := lang.Validate(v); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return lang.Normalize(v), nil
	case KeySplitFormat:
		f, err := audio.ParseFormat(v)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return string(f), nil
	case KeyYouTubeAPIKey:
		if !strings.HasPrefix(v, youtubeKeyPrefix) {
			return "", fmt.Errorf("%w: YouTube API keys start with %q", ErrInvalidValue, youtubeKeyPrefix)
		}
	case KeyOpenAIAPIKey:
		if !strings.HasPrefix(v, openAIKeyPrefix) {
			return "", fmt.Errorf("%w: OpenAI API keys start with %q", ErrInvalidValue, openAIKeyPrefix)
		}
	case KeyDataDir:
		if err := EnsureDataDir(v); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
	}
	return v, nil
}

// Save validates and writes a single key to the config file, creating the
// directory and file if needed. Other entries are preserved; comments are not.
func Save(key, value string) error {
	v, err := Validate(key, value)
	if err != nil {
		return err
	}
	name, _ := EnvName(key)

	data, err := readFile()
	if err != nil {
		return err
	}
	data[name] = v

	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	if err := godotenv.Write(data, p); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	// The file may hold API keys.
	return os.Chmod(p, 0600)
}

// Get reads a single value from the config file.
// Returns empty string if the key is not set.
func Get(key string) (string, error) {
	name, err := EnvName(key)
	if err != nil {
		return "", err
	}
	data, err := readFile()
	if err != nil {
		return "", err
	}
	return data[name], nil
}

// List returns the values set in the config file, keyed by CLI key.
// Entries the program doesn't know are left out.
func List() (map[string]string, error) {
	data, err := readFile()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for key, name := range envNames {
		if v, ok := data[name]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// EnsureDataDir checks that d is usable as the data root, creating it if
// missing.
func EnsureDataDir(d string) error {
	if d == "" {
		return fmt.Errorf("data-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user data dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Check if writable by attempting to create a temp file.
	f, err := os.CreateTemp(d, ".ytclips-write-test-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
