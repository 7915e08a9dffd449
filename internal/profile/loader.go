package profile

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtin embed.FS

// Registry holds the available profiles by name.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]*Profile),
	}
}

// Builtin returns a registry with the embedded profiles loaded.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadFromFS(builtin, "profiles"); err != nil {
		return nil, err
	}
	return r, nil
}

// Parse decodes and validates a profile document.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFromFile loads a profile from a YAML file, replacing any profile with
// the same name.
func (r *Registry) LoadFromFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	r.profiles[p.Name] = p
	return nil
}

// LoadFromDir loads all profiles from a directory.
func (r *Registry) LoadFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		if err := r.LoadFromFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromFS loads all profiles under dir in fsys.
func (r *Registry) LoadFromFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read embedded profiles: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		file := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", file, err)
		}

		p, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		r.profiles[p.Name] = p
	}
	return nil
}

// Get retrieves a profile by name.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	return p, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.profiles[name]
	return ok
}

// List returns all profile names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListWithDescriptions returns all profiles with their descriptions.
func (r *Registry) ListWithDescriptions() map[string]string {
	result := make(map[string]string, len(r.profiles))
	for name, p := range r.profiles {
		result[name] = p.Description
	}
	return result
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
