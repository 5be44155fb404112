package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed example.yaml
var exampleYAML []byte

// Example returns the annotated example configuration.
func Example() []byte {
	return append([]byte(nil), exampleYAML...)
}

// WriteExample writes the example configuration to path with owner-only
// permissions. Refuses to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, exampleYAML, 0600); err != nil {
		return fmt.Errorf("failed to write example configuration: %w", err)
	}
	return nil
}
