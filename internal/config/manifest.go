package config

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/releaserun/version-badge-action/internal/errs"
)

// manifestEntry is one product entry in a YAML products manifest.
type manifestEntry struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// manifest is the YAML products file schema:
//
//	products:
//	  - name: python
//	    version: "3.12"
//	  - name: node
type manifest struct {
	Products []manifestEntry `yaml:"products"`
}

// LoadManifest reads a YAML products manifest and returns its entries as
// name[:version] lines, which go through the same validation as inline
// input.
func LoadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Op: "read", Path: path, Err: err}
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errs.NewConfigError("products-file", path, err.Error())
	}

	lines := make([]string, 0, len(m.Products))
	for _, e := range m.Products {
		line := e.Name
		if e.Version != "" {
			line += ":" + e.Version
		}
		lines = append(lines, line)
	}
	return lines, nil
}
