// Package config loads the project configuration file. Problems are
// surfaced at load time so a misconfigured project fails before any
// session starts.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Meta struct {
		Description string `yaml:"description"`
	} `yaml:"meta"`

	// Catalog is the path to the samples.json file.
	Catalog string `yaml:"catalog"`

	// AssetsRoot is the directory the catalog's image and vlm_output
	// paths are relative to. Defaults to the current directory.
	AssetsRoot string `yaml:"assets_root"`

	// Addr is the address the web server binds to.
	Addr string `yaml:"addr"`

	Store StoreConfig `yaml:"store"`
}

type StoreConfig struct {
	// Backend selects where annotations are persisted: "json" keeps a
	// file per annotator under Dir, "sqlite" uses the Database file.
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	Database string `yaml:"database"`
}

// LoadConfig reads and validates the configuration at filename.
func LoadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("while opening config '%s': %w", filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("while reading config '%s': %w", filename, err)
	}

	var ret Config
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("while parsing config '%s': %w", filename, err)
	}

	if ret.Catalog == "" {
		return nil, fmt.Errorf("config '%s': catalog path is required", filename)
	}
	if ret.AssetsRoot == "" {
		ret.AssetsRoot = "."
	}
	if ret.Addr == "" {
		ret.Addr = ":8080"
	}
	if ret.Store.Backend == "" {
		ret.Store.Backend = BackendJSON
	}
	switch ret.Store.Backend {
	case BackendJSON:
		if ret.Store.Dir == "" {
			ret.Store.Dir = "annotations"
		}
	case BackendSQLite:
		if ret.Store.Database == "" {
			ret.Store.Database = "annotations.db"
		}
	default:
		return nil, fmt.Errorf("config '%s': unknown store backend '%s'", filename, ret.Store.Backend)
	}

	return &ret, nil
}
