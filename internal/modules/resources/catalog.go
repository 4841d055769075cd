package resources

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/fred-backend/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Resources []struct {
		Name        string   `yaml:"name"`
		Type        string   `yaml:"type"`
		Description string   `yaml:"description"`
		Phone       string   `yaml:"phone"`
		Website     string   `yaml:"website"`
		Address     string   `yaml:"address"`
		Region      string   `yaml:"region"`
		Tags        []string `yaml:"tags"`
		Priority    int      `yaml:"priority"`
		Active      *bool    `yaml:"active"`
	} `yaml:"resources"`
}

// ParseCatalog builds fresh rows on every call; the repo stamps ids and timestamps onto them.
func ParseCatalog(raw []byte) ([]*types.Resource, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse resource catalog: %w", err)
	}
	seen := make(map[string]bool, len(f.Resources))
	out := make([]*types.Resource, 0, len(f.Resources))
	for i, e := range f.Resources {
		name := strings.TrimSpace(e.Name)
		if name == "" || strings.TrimSpace(e.Description) == "" {
			return nil, fmt.Errorf("resource catalog entry %d: name and description are required", i)
		}
		if !types.ValidResourceType(e.Type) {
			return nil, fmt.Errorf("resource %q: type must be one of %s", name, strings.Join(types.ResourceTypes, ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("resource %q listed twice", name)
		}
		seen[name] = true

		region := strings.TrimSpace(e.Region)
		if region == "" {
			region = types.ResourceDefaultRegion
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		out = append(out, &types.Resource{
			Name:        name,
			Type:        e.Type,
			Description: strings.TrimSpace(e.Description),
			Phone:       optional(e.Phone),
			Website:     optional(e.Website),
			Address:     optional(e.Address),
			Region:      region,
			Tags:        types.EncodeTags(e.Tags),
			Priority:    e.Priority,
			Active:      active,
		})
	}
	return out, nil
}

// DefaultCatalog returns the built-in Victorian and national services.
func DefaultCatalog() []*types.Resource {
	rows, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return rows
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
