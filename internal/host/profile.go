package host

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes where a host version keeps its types and how to reach an
// endpoint's outbound pipeline.
type Profile struct {
	Version string `yaml:"version"`
	// Namespaces maps logical namespaces (nms, obc) to qualified ones.
	Namespaces map[string]string `yaml:"namespaces"`
	// PipelinePath is walked from the endpoint; each step names a zero-arg
	// method or a field.
	PipelinePath []string `yaml:"pipeline_path"`
}

func ParseProfile(raw []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("host profile: %w", err)
	}
	return p, nil
}

func LoadProfile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read host profile failed: %w", err)
	}
	return ParseProfile(raw)
}

// Merge returns p with every field set in over replacing p's.
func (p Profile) Merge(over Profile) Profile {
	out := Profile{
		Version:      p.Version,
		Namespaces:   make(map[string]string, len(p.Namespaces)),
		PipelinePath: append([]string(nil), p.PipelinePath...),
	}
	for k, v := range p.Namespaces {
		out.Namespaces[k] = v
	}
	if over.Version != "" {
		out.Version = over.Version
	}
	for k, v := range over.Namespaces {
		out.Namespaces[k] = v
	}
	if len(over.PipelinePath) > 0 {
		out.PipelinePath = append([]string(nil), over.PipelinePath...)
	}
	return out
}

func (p Profile) Validate() error {
	if p.Version == "" {
		return errors.New("host profile: version is required")
	}
	if p.Namespaces[NamespaceServer] == "" {
		return fmt.Errorf("host profile: namespace %q is required", NamespaceServer)
	}
	return nil
}
