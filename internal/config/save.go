package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// New creates an empty configuration bound to the given path.
// Used by `config init` and the v1 migration.
func New(path string, defaults Defaults) *Config {
	cfg := &Config{
		Defaults: defaults,
		domains:  make(map[string]*Domain),
		path:     path,
	}
	cfg.applyFallbacks()
	return cfg
}

// AddDomain adds a new domain entry. The entry is validated the same
// way Load validates file content.
func (c *Config) AddDomain(name string, d Domain) error {
	if _, exists := c.domains[name]; exists {
		return &SchemaError{Domain: name, Reason: "domain already configured"}
	}
	if err := validateDomainEntry(name, &d); err != nil {
		return err
	}
	c.domains[name] = &d
	c.order = append(c.order, name)
	return nil
}

// RemoveDomain removes a domain entry. Artifacts on disk are kept.
func (c *Config) RemoveDomain(name string) error {
	if _, exists := c.domains[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownDomain, name)
	}
	delete(c.domains, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Save writes the configuration back to its path, preserving domain
// order. The file carries cleartext secrets, so it is written 0600
// via temp-file-then-rename.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("configuration has no backing path")
	}
	return c.SaveTo(c.path)
}

// SaveTo writes the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	doc, err := c.marshalNode()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace configuration: %w", err)
	}
	return nil
}

// marshalNode builds the YAML document with an ordered domains mapping.
func (c *Config) marshalNode() (*yaml.Node, error) {
	var defaultNode yaml.Node
	if err := defaultNode.Encode(c.Defaults); err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}

	domainsNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range c.order {
		var keyNode yaml.Node
		keyNode.SetString(name)

		var valNode yaml.Node
		if err := valNode.Encode(c.domains[name]); err != nil {
			return nil, fmt.Errorf("failed to encode domain %q: %w", name, err)
		}
		domainsNode.Content = append(domainsNode.Content, &keyNode, &valNode)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	var defaultKey, domainsKey yaml.Node
	defaultKey.SetString("default")
	domainsKey.SetString("domains")
	root.Content = append(root.Content, &defaultKey, &defaultNode, &domainsKey, domainsNode)

	return root, nil
}
