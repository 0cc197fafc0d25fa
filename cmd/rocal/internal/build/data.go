package build

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/recera/rocal/pkg/ui"
)

// dataExtensions are tried in order when looking for a template's sibling
// data file
var dataExtensions = []string{".yaml", ".yml", ".json"}

// LoadData reads a YAML or JSON data file into a context. The top level
// must be a mapping.
func LoadData(path string) (ui.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseData(path, data)
}

// ParseData decodes YAML or JSON data. name is used in error messages.
func ParseData(name string, data []byte) (ui.Context, error) {
	ctx := ui.Context{}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&ctx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse data %s: %w", name, err)
	}
	return ctx, nil
}

// SiblingDataFile returns the data file next to a template, such as
// about.yaml for about.rui, or "" if there is none
func SiblingDataFile(templatePath, ext string) string {
	base := strings.TrimSuffix(templatePath, ext)
	for _, dataExt := range dataExtensions {
		candidate := base + dataExt
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Merge returns a new context holding base overlaid with each overlay in
// turn. Later keys win; nested values are not merged.
func Merge(base ui.Context, overlays ...ui.Context) ui.Context {
	out := make(ui.Context, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			out[k] = v
		}
	}
	return out
}

// readOptional reads a sibling data file, treating a missing or unset path
// as empty
func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
