package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the properties file omits a setting.
const (
	DefaultDomain           = "ccdi.cancer.gov"
	DefaultRelPropDelimiter = "$"
	DefaultListDelimiter    = ";"
)

// Properties is the dataset-level metadata document: identity fields, index
// declarations, the UUID namespace domain, and column delimiters.
type Properties struct {
	Domain           string
	RelPropDelimiter string
	ListDelimiter    string
	// IDFields maps node kind to its declared id property.
	IDFields map[string]string
	// Indexes lists composite indexes beyond the id fields.
	Indexes []IndexSpec
	// SaveParentID holds the kinds that copy parent ids inline.
	SaveParentID map[string]struct{}
}

// IndexSpec is one index to ensure: a node kind and its property list.
type IndexSpec struct {
	Kind  string
	Props []string
}

type rawProperties struct {
	Properties struct {
		Domain           string                   `yaml:"domain"`
		RelPropDelimiter string                   `yaml:"rel_prop_delimiter"`
		ListDelimiter    string                   `yaml:"list_delimiter"`
		IDFields         map[string]string        `yaml:"id_fields"`
		Indexes          []map[string]interface{} `yaml:"indexes"`
		SaveParentID     []string                 `yaml:"save_parent_id"`
	} `yaml:"Properties"`
}

// LoadProperties parses a properties YAML file.
func LoadProperties(path string) (*Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file: %w", err)
	}
	var raw rawProperties
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse properties file %s: %w", path, err)
	}

	p := &Properties{
		Domain:           raw.Properties.Domain,
		RelPropDelimiter: raw.Properties.RelPropDelimiter,
		ListDelimiter:    raw.Properties.ListDelimiter,
		IDFields:         raw.Properties.IDFields,
		SaveParentID:     make(map[string]struct{}, len(raw.Properties.SaveParentID)),
	}
	if p.Domain == "" {
		p.Domain = DefaultDomain
	}
	if p.RelPropDelimiter == "" {
		p.RelPropDelimiter = DefaultRelPropDelimiter
	}
	if p.ListDelimiter == "" {
		p.ListDelimiter = DefaultListDelimiter
	}
	if p.IDFields == nil {
		p.IDFields = map[string]string{}
	}
	for _, kind := range raw.Properties.SaveParentID {
		p.SaveParentID[kind] = struct{}{}
	}

	for _, entry := range raw.Properties.Indexes {
		for _, kind := range sortedKeys(entry) {
			spec := IndexSpec{Kind: kind}
			switch props := entry[kind].(type) {
			case string:
				spec.Props = []string{props}
			case []interface{}:
				for _, prop := range props {
					spec.Props = append(spec.Props, fmt.Sprintf("%v", prop))
				}
			default:
				return nil, fmt.Errorf("index for %s: properties must be a name or a list", kind)
			}
			p.Indexes = append(p.Indexes, spec)
		}
	}
	return p, nil
}
