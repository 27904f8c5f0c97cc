package models

import "encoding/json"

// PackageManifest is the normalized shape of a parsed package descriptor:
// an npm package.json, a registry search hit, or a dedicated MCP config
// file in JSON or YAML form. All source adapters funnel their raw records
// through this type before classification.
type PackageManifest struct {
	Name             string            `json:"name" yaml:"name"`
	Version          string            `json:"version" yaml:"version"`
	Description      string            `json:"description" yaml:"description"`
	Keywords         []string          `json:"keywords" yaml:"keywords"`
	Homepage         string            `json:"homepage" yaml:"homepage"`
	License          string            `json:"license" yaml:"license"`
	Author           ManifestAuthor    `json:"author" yaml:"author"`
	Repository       ManifestRepo      `json:"repository" yaml:"repository"`
	Dependencies     map[string]string `json:"dependencies" yaml:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies" yaml:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies" yaml:"peerDependencies"`
}

// AllDependencyNames returns the combined direct, dev and peer dependency
// names in one slice.
func (m *PackageManifest) AllDependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies)+len(m.DevDependencies)+len(m.PeerDependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	for name := range m.DevDependencies {
		names = append(names, name)
	}
	for name := range m.PeerDependencies {
		names = append(names, name)
	}
	return names
}

// ManifestAuthor tolerates both the string and the object form that
// package.json allows for the author field.
type ManifestAuthor struct {
	Name string
}

// UnmarshalJSON accepts either "author": "Jane" or "author": {"name": "Jane"}.
func (a *ManifestAuthor) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.Name = s
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Name = obj.Name
	return nil
}

// UnmarshalYAML accepts the same two forms for YAML manifests.
func (a *ManifestAuthor) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		a.Name = s
		return nil
	}
	var obj struct {
		Name string `yaml:"name"`
	}
	if err := unmarshal(&obj); err != nil {
		return err
	}
	a.Name = obj.Name
	return nil
}

// ManifestRepo tolerates both the string and the object form that
// package.json allows for the repository field.
type ManifestRepo struct {
	URL string
}

// UnmarshalJSON accepts either "repository": "url" or {"type": ..., "url": ...}.
func (r *ManifestRepo) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r.URL = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.URL = obj.URL
	return nil
}

// UnmarshalYAML accepts the same two forms for YAML manifests.
func (r *ManifestRepo) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		r.URL = s
		return nil
	}
	var obj struct {
		URL string `yaml:"url"`
	}
	if err := unmarshal(&obj); err != nil {
		return err
	}
	r.URL = obj.URL
	return nil
}
