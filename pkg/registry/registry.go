// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed registry.json
var embedded []byte

// Default parses the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return parse(embedded)
}

// MustDefault is Default for program startup.
func MustDefault() *ActivityRegistry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}
