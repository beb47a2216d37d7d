package backend

import (
	"fmt"
	"slices"
)

// Constructor builds a Backend from its configuration.
type Constructor func(cfg Config) (Backend, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under the given provider name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the constructor for the given provider name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend provider: %s", name)
	}
	return ctor, nil
}

// New resolves cfg.Provider and constructs the backend.
func New(cfg Config) (Backend, error) {
	ctor, err := Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return ctor(cfg)
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
