// Package config handles hsab's user-configurable options. Fields here are
// PascalCase but the actual config.yml uses camelCase. You can view the
// default config with `hsab --config`, and it lives at
// `~/.hsab/config.yml` (or an XDG config dir, see configDir below).
package config

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"
)

// UserConfig holds all of the user-configurable options (spec AMBIENT
// STACK "Configuration": recursion cap, preview length, module search
// path, banner toggle, table/output rendering).
type UserConfig struct {
	// MaxRecursion caps definition-call and block-call depth before the
	// evaluator raises a recursion-limit error (spec §4.5, overridable per
	// session via HSAB_MAX_RECURSION).
	MaxRecursion int `yaml:"maxRecursion,omitempty"`

	// PreviewLength is how many stack entries a bare top-of-stack preview
	// shows before truncating (spec §6 REPL preview rendering).
	PreviewLength int `yaml:"previewLength,omitempty"`

	// ModulePath is additional directories searched for `.import`/`.`
	// targets. They are appended to HSAB_PATH at startup, so they are tried
	// after cwd, cwd/lib, ~/.hsab/lib and any directory HSAB_PATH already
	// lists.
	ModulePath []string `yaml:"modulePath,omitempty"`

	// ShowBanner toggles the startup banner the interactive REPL prints.
	ShowBanner bool `yaml:"showBanner,omitempty"`

	// Language selects the translation set (spec §7 error formatting);
	// "auto" (the default) detects it from the environment.
	Language string `yaml:"language,omitempty"`

	// Table holds table rendering settings (header color, column width).
	// No builtin reads them; table and record output ignores these values.
	Table TableConfig `yaml:"table,omitempty"`

	// Plugin controls the C11 plugin host: its directory and whether hot
	// reload runs in the background.
	Plugin PluginConfig `yaml:"plugin,omitempty"`
}

// TableConfig is the hsab-domain equivalent of the teacher's ThemeConfig:
// output rendering rather than panel borders.
type TableConfig struct {
	// HeaderColor is an ANSI color name for table/record headers (e.g.
	// "cyan", "green").
	HeaderColor string `yaml:"headerColor,omitempty"`

	// MaxColumnWidth is a cell width limit in characters.
	MaxColumnWidth int `yaml:"maxColumnWidth,omitempty"`
}

// PluginConfig is the C11 plugin host's user-facing settings.
type PluginConfig struct {
	// Dir overrides DefaultPluginDir (~/.hsab/plugins) when set.
	Dir string `yaml:"dir,omitempty"`

	// HotReload toggles the background filesystem watcher; when it is off,
	// plugins are loaded once at startup and file changes are not picked up.
	HotReload bool `yaml:"hotReload,omitempty"`
}

// GetDefaultConfig returns the application default configuration. NOTE (to
// contributors, not users): do not default a boolean to true, because
// false is the boolean zero value and will be silently dropped by
// mergo's default struct-merge semantics.
func GetDefaultConfig() UserConfig {
	return UserConfig{
		MaxRecursion:  1000,
		PreviewLength: 5,
		ModulePath:    []string{},
		ShowBanner:    true,
		Language:      "auto",
		Table: TableConfig{
			HeaderColor:    "cyan",
			MaxColumnWidth: 40,
		},
		Plugin: PluginConfig{
			HotReload: true,
		},
	}
}

// AppConfig contains the base configuration fields required for hsab.
type AppConfig struct {
	Debug       bool   `long:"debug" env:"HSAB_DEBUG" default:"false"`
	Version     string `long:"version" env:"VERSION" default:"unversioned"`
	Commit      string `long:"commit" env:"COMMIT"`
	BuildDate   string `long:"build-date" env:"BUILD_DATE"`
	Name        string `long:"name" env:"NAME" default:"hsab"`
	BuildSource string `long:"build-source" env:"BUILD_SOURCE" default:""`
	UserConfig  *UserConfig
	ConfigDir   string
	ProjectDir  string
}

// NewAppConfig makes a new app config
func NewAppConfig(name, version, commit, date string, buildSource string, debuggingFlag bool, projectDir string) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		Name:        name,
		Version:     version,
		Commit:      commit,
		BuildDate:   date,
		Debug:       debuggingFlag || os.Getenv("HSAB_DEBUG") == "1",
		BuildSource: buildSource,
		UserConfig:  userConfig,
		ConfigDir:   configDir,
		ProjectDir:  projectDir,
	}

	return appConfig, nil
}

func configDirForVendor(vendor string, projectName string) string {
	envConfigDir := os.Getenv("HSAB_CONFIG_DIR")
	if envConfigDir != "" {
		return envConfigDir
	}
	configDirs := xdg.New(vendor, projectName)
	return configDirs.ConfigHome()
}

// configDir resolves hsab's config directory: ~/.hsab when that directory
// already exists, otherwise HSAB_CONFIG_DIR when set, otherwise the XDG
// config home for hsab (spec §6 "Persisted State Layout").
func configDir(projectName string) string {
	if home, err := os.UserHomeDir(); err == nil {
		legacy := filepath.Join(home, "."+projectName)
		if _, err := os.Stat(legacy); !os.IsNotExist(err) {
			return legacy
		}
	}
	return configDirForVendor("", projectName)
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := configDir(projectName)

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}

	return folder, nil
}

func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	base := GetDefaultConfig()
	return loadUserConfig(configDir, &base)
}

// loadUserConfig decodes configDir/config.yml (creating an empty file if
// absent) over base via mergo, with the file's values winning — the same
// merge-user-over-defaults contract the teacher applies in docker.go and
// i18n.go.
func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, err := os.Create(fileName)
			if err != nil {
				return nil, err
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var fromFile UserConfig
	if err := yaml.Unmarshal(content, &fromFile); err != nil {
		return nil, err
	}

	if err := mergo.Merge(base, fromFile, mergo.WithOverride); err != nil {
		return nil, err
	}

	return base, nil
}

// WriteToUserConfig allows you to set a value on the user config to be
// saved. Note that if you set a zero-value, it may be ignored e.g. a
// false or 0 or empty string, since omitempty means we don't write a heap
// of zero values to the user's config.yml.
func (c *AppConfig) WriteToUserConfig(updateConfig func(*UserConfig) error) error {
	userConfig, err := loadUserConfig(c.ConfigDir, &UserConfig{})
	if err != nil {
		return err
	}

	if err := updateConfig(userConfig); err != nil {
		return err
	}

	file, err := os.OpenFile(c.ConfigFilename(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer file.Close()

	return yaml.NewEncoder(file).Encode(userConfig)
}

// ConfigFilename returns the filename of the current config file
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}
