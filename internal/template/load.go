package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape: one YAML document holding several templates.
type File struct {
	Templates []Template `yaml:"templates"`
}

// Load reads and validates the templates in a single YAML file.
func Load(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing template file %s: %w", path, err)
	}

	for i := range file.Templates {
		if err := file.Templates[i].Validate(); err != nil {
			return nil, err
		}
	}
	return file.Templates, nil
}

// LoadDir loads every .yaml/.yml file in a directory, in name order so
// template precedence is stable.
func LoadDir(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var templates []Template
	for _, name := range names {
		loaded, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		templates = append(templates, loaded...)
	}
	return templates, nil
}
