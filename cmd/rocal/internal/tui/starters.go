package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// Starter is a template a new file can begin from
type Starter struct {
	Name        string
	Description string
	Template    string
	Data        string // sibling YAML data, may be empty
}

// Starters lists the available starters in menu order
var Starters = []Starter{
	{
		Name:        "blank",
		Description: "An HTML page with a title",
		Template: `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{ title }}</title>
  </head>
  <body>
    <h1>{{ title }}</h1>
  </body>
</html>
`,
		Data: "title: %s\n",
	},
	{
		Name:        "list",
		Description: "Renders a list with a for loop",
		Template: `<!DOCTYPE html>
<html>
  <head><title>{{ title }}</title></head>
  <body>
    <h1>{{ title }}</h1>
    <ul>
      for item in items {
        <li>{{ item.name }}</li>
      }
    </ul>
  </body>
</html>
`,
		Data: `title: %s
items:
  - name: First
  - name: Second
  - name: Third
`,
	},
	{
		Name:        "conditional",
		Description: "Chooses markup with if / else if / else",
		Template: `<!DOCTYPE html>
<html>
  <head><title>{{ title }}</title></head>
  <body>
    if user.admin {
      <p>{ "Welcome back, administrator." }</p>
    } else if user.name != "" {
      <p>{ "Hello, " }<b>{{ user.name }}</b></p>
    } else {
      <p>{ "Please sign in." }</p>
    }
  </body>
</html>
`,
		Data: `title: %s
user:
  name: Ada
  admin: false
`,
	},
}

// FindStarter returns the starter called name
func FindStarter(name string) (Starter, bool) {
	for _, s := range Starters {
		if s.Name == name {
			return s, true
		}
	}
	return Starter{}, false
}

// TemplateConfig describes the template to create
type TemplateConfig struct {
	Name      string // path without extension, relative to Dir
	Starter   string
	Dir       string // templates directory
	Extension string
}

// Paths returns the template file and its data file
func (c TemplateConfig) Paths() (string, string) {
	base := filepath.Join(c.Dir, filepath.FromSlash(c.Name))
	return base + c.Extension, base + ".yaml"
}

// ValidateTemplateName validates a new template's name. Slashes place the
// template in a subdirectory.
func ValidateTemplateName(name string) error {
	if name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("template name too long (max 100 characters)")
	}

	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("template name has an empty or relative path segment")
		}
		for _, ch := range part {
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
				(ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.') {
				return fmt.Errorf("template name contains invalid character: %c", ch)
			}
		}
	}

	return nil
}

// CreateTemplate writes the starter template and its data file. Existing
// files are never overwritten.
func CreateTemplate(config TemplateConfig) ([]string, error) {
	if err := ValidateTemplateName(config.Name); err != nil {
		return nil, err
	}
	starter, ok := FindStarter(config.Starter)
	if !ok {
		return nil, fmt.Errorf("unknown starter %q", config.Starter)
	}

	tmplPath, dataPath := config.Paths()
	for _, p := range []string{tmplPath, dataPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("%s already exists", p)
		}
	}

	if err := os.MkdirAll(filepath.Dir(tmplPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	created := []string{tmplPath}
	if err := atomic.WriteFile(tmplPath, strings.NewReader(starter.Template)); err != nil {
		return nil, fmt.Errorf("failed to write template: %w", err)
	}

	if starter.Data != "" {
		data := fmt.Sprintf(starter.Data, title(config.Name))
		if err := atomic.WriteFile(dataPath, strings.NewReader(data)); err != nil {
			return created, fmt.Errorf("failed to write data file: %w", err)
		}
		created = append(created, dataPath)
	}

	return created, nil
}

// title turns blog/my-first-post into "My First Post"
func title(name string) string {
	base := name[strings.LastIndex(name, "/")+1:]
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return fmt.Sprintf("%q", strings.Join(words, " "))
}
