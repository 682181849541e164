// Package pages loads the catalogue of official, read-only pages.
package pages

import (
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"clonerp/internal/models"
	"clonerp/web"
)

//go:embed official.yaml
var defaultCatalogue []byte

// Download is a fixed file offered as an attachment at /<Link>.
type Download struct {
	Link string `yaml:"link"`
	File string `yaml:"file"`
}

type Catalogue struct {
	Official []models.OfficialPage `yaml:"official"`
	Download Download              `yaml:"download"`
}

// Load reads the catalogue from path, or the built-in one when path is empty.
func Load(path string) (*Catalogue, error) {
	data := defaultCatalogue
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pages file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// reserved are first path segments owned by the application routes.
var reserved = map[string]bool{
	"main": true, "register": true, "login": true, "logout": true,
	"setrole": true, "create-topic": true, "topic": true, "admin": true,
	"healthz": true, "metrics": true,
}

func (c *Catalogue) validate() error {
	seen := map[string]bool{}
	for k := range reserved {
		seen[k] = true
	}
	for i, p := range c.Official {
		switch {
		case p.Title == "":
			return fmt.Errorf("official page %d: title is required", i)
		case !validLink(p.Link):
			return fmt.Errorf("official page %q: link %q must be a single plain path segment", p.Title, p.Link)
		case p.Template == "":
			return fmt.Errorf("official page %q: template is required", p.Title)
		case !templateExists(p.Template):
			return fmt.Errorf("official page %q: no template named %q", p.Title, p.Template)
		case seen[p.Link]:
			return fmt.Errorf("official page %q: link %q is already taken", p.Title, p.Link)
		}
		seen[p.Link] = true
	}
	if c.Download.Link != "" {
		if !validLink(c.Download.Link) {
			return fmt.Errorf("download link %q must be a single plain path segment", c.Download.Link)
		}
		if c.Download.File == "" || strings.ContainsAny(c.Download.File, `/\`) {
			return fmt.Errorf("download %q: file must be a bare file name", c.Download.Link)
		}
		if seen[c.Download.Link] {
			return fmt.Errorf("download link %q is already taken", c.Download.Link)
		}
	}
	return nil
}

// validLink accepts one path segment that can be used verbatim in a
// ServeMux pattern: no slashes, wildcard braces or whitespace.
func validLink(link string) bool {
	if link == "" {
		return false
	}
	return !strings.ContainsFunc(link, func(r rune) bool {
		return r == '/' || r == '{' || r == '}' || unicode.IsSpace(r)
	})
}

func templateExists(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	_, err := fs.Stat(web.Templates, "templates/"+name)
	return err == nil
}
