package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultThemeName is served from DefaultColors without a file
const DefaultThemeName = "default"

// themeFile is the on-disk layout of a theme
type themeFile struct {
	AdminConsole *ColorsConfig `yaml:"adminConsole"`
}

// ThemeLoader loads color themes from a directory of YAML files
type ThemeLoader struct {
	themesDir string
}

// NewThemeLoader creates a new theme loader
func NewThemeLoader(themesDir string) *ThemeLoader {
	return &ThemeLoader{
		themesDir: themesDir,
	}
}

// LoadTheme returns the named theme. The name may omit the .yaml
// extension; "default" never touches the disk.
func (tl *ThemeLoader) LoadTheme(name string) (*ColorsConfig, error) {
	if name == "" || name == DefaultThemeName {
		return DefaultColors(), nil
	}
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}

	path := filepath.Join(tl.themesDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("theme file not found: %s", name)
		}
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var theme themeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if theme.AdminConsole == nil {
		return nil, fmt.Errorf("invalid theme file: missing adminConsole section")
	}
	if err := ValidateTheme(theme.AdminConsole); err != nil {
		return nil, err
	}
	return theme.AdminConsole, nil
}

// ListAvailableThemes returns the theme names found in the directory,
// always including the built-in default
func (tl *ThemeLoader) ListAvailableThemes() ([]string, error) {
	themes := []string{DefaultThemeName}

	entries, err := os.ReadDir(tl.themesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return themes, nil
		}
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".yaml" {
			themes = append(themes, strings.TrimSuffix(entry.Name(), ".yaml"))
		}
	}
	sort.Strings(themes[1:])
	return themes, nil
}

// SaveThemeToFile saves a theme configuration to a YAML file
func (tl *ThemeLoader) SaveThemeToFile(theme *ColorsConfig, name string) error {
	if err := ValidateTheme(theme); err != nil {
		return err
	}
	if err := os.MkdirAll(tl.themesDir, 0755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}

	data, err := yaml.Marshal(themeFile{AdminConsole: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}

	path := filepath.Join(tl.themesDir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}
	return nil
}

// ValidateTheme checks the colors every view relies on
func ValidateTheme(theme *ColorsConfig) error {
	if theme == nil {
		return fmt.Errorf("theme is nil")
	}

	required := []struct {
		name  string
		color Color
	}{
		{"Body.FgColor", theme.Body.FgColor},
		{"Body.BgColor", theme.Body.BgColor},
		{"Thread.UnreadColor", theme.Thread.UnreadColor},
		{"Thread.ReadColor", theme.Thread.ReadColor},
		{"Toast.ErrorColor", theme.Toast.ErrorColor},
	}
	for _, req := range required {
		if req.color == "" {
			return fmt.Errorf("missing required color: %s", req.name)
		}
	}
	return nil
}
