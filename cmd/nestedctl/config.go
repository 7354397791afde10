package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/henderiw/nestedtable/pkg/treetable"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"
)

const nameLabel = "name"

// Config is the nestedctl configuration file.
type Config struct {
	// Database is the SQLite dsn, ":memory:" for a throwaway database.
	Database  string `yaml:"database"`
	Table     string `yaml:"table"`
	MaxDepth  int64  `yaml:"maxDepth"`
	MaxFanOut int64  `yaml:"maxFanOut"`
}

func defaultConfig() Config {
	return Config{
		Database: "nestedtable.db",
		Table:    "tree_entries",
	}
}

// loadConfig reads path on top of the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxDepth < 0 || cfg.MaxFanOut < 0 {
		return cfg, fmt.Errorf("config %s: limits must not be negative", path)
	}
	return cfg, nil
}

// validation returns the capacity validators enabled by the config, nil when
// there are none.
func (r Config) validation() treetable.ValidationFn {
	var fns []treetable.ValidationFn
	if r.MaxDepth > 0 {
		fns = append(fns, treetable.MaxDepth(r.MaxDepth))
	}
	if r.MaxFanOut > 0 {
		fns = append(fns, treetable.MaxFanOut(r.MaxFanOut))
	}
	if len(fns) == 0 {
		return nil
	}
	return treetable.Validators(fns...)
}

// Node is one entry of a tree file.
type Node struct {
	Name     string            `yaml:"name"`
	Labels   map[string]string `yaml:"labels,omitempty"`
	Children []Node            `yaml:"children,omitempty"`
}

func loadTree(path string) ([]Node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	return parseTree(b)
}

// parseTree decodes a YAML list of nodes. Names must be unique and every name
// and label must be a valid label value.
func parseTree(b []byte) ([]Node, error) {
	var nodes []Node
	if err := yaml.Unmarshal(b, &nodes); err != nil {
		return nil, fmt.Errorf("parse tree: %w", err)
	}

	seen := map[string]struct{}{}
	var errm error
	var check func(n Node)
	check = func(n Node) {
		if n.Name == "" {
			errm = errors.Join(errm, errors.New("node without name"))
		}
		if _, ok := seen[n.Name]; ok {
			errm = errors.Join(errm, fmt.Errorf("duplicate node %q", n.Name))
		}
		seen[n.Name] = struct{}{}
		for _, msg := range validation.IsValidLabelValue(n.Name) {
			errm = errors.Join(errm, fmt.Errorf("node %q: %s", n.Name, msg))
		}
		for k, v := range n.Labels {
			if k == nameLabel {
				errm = errors.Join(errm, fmt.Errorf("node %q: label %q is reserved", n.Name, k))
			}
			for _, msg := range validation.IsQualifiedName(k) {
				errm = errors.Join(errm, fmt.Errorf("node %q label key %q: %s", n.Name, k, msg))
			}
			for _, msg := range validation.IsValidLabelValue(v) {
				errm = errors.Join(errm, fmt.Errorf("node %q label %q: %s", n.Name, k, msg))
			}
		}
		for _, c := range n.Children {
			check(c)
		}
	}
	for _, n := range nodes {
		check(n)
	}
	if errm != nil {
		return nil, errm
	}
	return nodes, nil
}
