package schema

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/types"
	"github.com/CBIIT/CCDI-Inventory-Dataloader/pkg/utils"
)

// PropType tags the declared value type of a property.
type PropType string

const (
	TypeString   PropType = "String"
	TypeInt      PropType = "Int"
	TypeFloat    PropType = "Float"
	TypeBoolean  PropType = "Boolean"
	TypeDate     PropType = "Date"
	TypeDateTime PropType = "DateTime"
	TypeArray    PropType = "Array"
	TypeObject   PropType = "Object"
)

// Multiplicity values for relationship ends.
const (
	ManyToOne  = "many_to_one"
	OneToOne   = "one_to_one"
	OneToMany  = "one_to_many"
	ManyToMany = "many_to_many"

	// DefaultMultiplicity applies when a relationship declares none.
	DefaultMultiplicity = ManyToOne
)

// PropDef describes one declared property.
type PropDef struct {
	Name     string
	Type     PropType
	Required bool
	// Enum holds the allowed values for enumerated properties, nil when
	// the property is unrestricted.
	Enum map[string]struct{}
	// Units lists the declared units for value-with-unit properties. The
	// first unit is the default recorded in the <name>_unit sibling.
	Units []string

	HasMin bool
	HasMax bool
	Min    float64
	Max    float64
}

// NodeDef describes one node kind and its own properties.
type NodeDef struct {
	Kind  string
	Props map[string]*PropDef
}

// End is one declared (source, destination) pair of a relationship.
type End struct {
	Src  string
	Dst  string
	Mult string
}

// RelationshipDef describes one edge label: its default multiplicity, the
// kind pairs it connects, and any declared edge properties.
type RelationshipDef struct {
	Label string
	Mult  string
	Ends  []End
	Props map[string]*PropDef
}

// Relationship is a resolved edge between two concrete kinds.
type Relationship struct {
	Label        string
	Multiplicity string
}

// Model is the parsed data model. A Model is immutable after Load and safe
// for concurrent reads.
type Model struct {
	nodes         map[string]*NodeDef
	relationships map[string]*RelationshipDef
	ends          map[endKey]Relationship
	props         *Properties
	domainNS      uuid.UUID
	namespaces    map[string]uuid.UUID
	log           *slog.Logger
}

type endKey struct {
	src string
	dst string
}

// Raw YAML shapes for model documents.
type rawModel struct {
	Nodes           map[string]rawNode         `yaml:"Nodes"`
	Relationships   map[string]rawRelationship `yaml:"Relationships"`
	PropDefinitions map[string]rawPropDef      `yaml:"PropDefinitions"`
}

type rawNode struct {
	Props []string `yaml:"Props"`
}

type rawRelationship struct {
	Mult  string   `yaml:"Mult"`
	Props []string `yaml:"Props"`
	Ends  []rawEnd `yaml:"Ends"`
}

type rawEnd struct {
	Src  string `yaml:"Src"`
	Dst  string `yaml:"Dst"`
	Mult string `yaml:"Mult"`
}

type rawPropDef struct {
	Type    interface{} `yaml:"Type"`
	Req     interface{} `yaml:"Req"`
	Minimum *float64    `yaml:"Minimum"`
	Maximum *float64    `yaml:"Maximum"`
}

// Load parses the properties file and the model documents in order. Later
// model documents override earlier ones entry by entry within each section.
func Load(propsFile string, modelFiles []string, log *slog.Logger) (*Model, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(modelFiles) == 0 {
		return nil, fmt.Errorf("no model files given")
	}
	props, err := LoadProperties(propsFile)
	if err != nil {
		return nil, err
	}

	merged := rawModel{
		Nodes:           map[string]rawNode{},
		Relationships:   map[string]rawRelationship{},
		PropDefinitions: map[string]rawPropDef{},
	}
	for _, path := range modelFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read model file: %w", err)
		}
		var doc rawModel
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
		}
		for k, v := range doc.Nodes {
			merged.Nodes[k] = v
		}
		for k, v := range doc.Relationships {
			merged.Relationships[k] = v
		}
		for k, v := range doc.PropDefinitions {
			merged.PropDefinitions[k] = v
		}
	}

	m := &Model{
		nodes:         make(map[string]*NodeDef, len(merged.Nodes)),
		relationships: make(map[string]*RelationshipDef, len(merged.Relationships)),
		ends:          make(map[endKey]Relationship),
		props:         props,
		namespaces:    make(map[string]uuid.UUID, len(merged.Nodes)),
		log:           log,
	}

	defs := make(map[string]*PropDef, len(merged.PropDefinitions))
	for name, raw := range merged.PropDefinitions {
		def, err := buildPropDef(name, raw)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		defs[name] = def
	}

	for _, kind := range sortedKeys(merged.Nodes) {
		node := &NodeDef{Kind: kind, Props: make(map[string]*PropDef)}
		for _, propName := range merged.Nodes[kind].Props {
			def, ok := defs[propName]
			if !ok {
				log.Warn("property has no definition, treating as String",
					"kind", kind, "property", propName)
				def = &PropDef{Name: propName, Type: TypeString}
			}
			node.Props[propName] = def
		}
		m.nodes[kind] = node
	}

	for _, label := range sortedKeys(merged.Relationships) {
		raw := merged.Relationships[label]
		rel := &RelationshipDef{
			Label: label,
			Mult:  normalizeMultiplicity(raw.Mult),
			Props: make(map[string]*PropDef),
		}
		for _, propName := range raw.Props {
			def, ok := defs[propName]
			if !ok {
				def = &PropDef{Name: propName, Type: TypeString}
			}
			rel.Props[propName] = def
		}
		for _, e := range raw.Ends {
			end := End{Src: e.Src, Dst: e.Dst, Mult: rel.Mult}
			if e.Mult != "" {
				end.Mult = normalizeMultiplicity(e.Mult)
			}
			if _, ok := m.nodes[e.Src]; !ok {
				log.Warn("relationship end references undeclared kind",
					"label", label, "kind", e.Src)
			}
			if _, ok := m.nodes[e.Dst]; !ok {
				log.Warn("relationship end references undeclared kind",
					"label", label, "kind", e.Dst)
			}
			rel.Ends = append(rel.Ends, end)

			key := endKey{src: e.Src, dst: e.Dst}
			if prev, ok := m.ends[key]; ok && prev.Label != label {
				log.Warn("multiple relationships between kinds, keeping first",
					"src", e.Src, "dst", e.Dst, "kept", prev.Label, "ignored", label)
				continue
			}
			m.ends[key] = Relationship{Label: label, Multiplicity: end.Mult}
		}
		m.relationships[label] = rel
	}

	m.domainNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte(props.Domain))
	for kind := range m.nodes {
		m.namespaces[kind] = uuid.NewSHA1(m.domainNS, []byte(kind))
	}
	log.Info("data model loaded",
		"kinds", len(m.nodes), "relationships", len(m.relationships), "domain", props.Domain)

	return m, nil
}

func buildPropDef(name string, raw rawPropDef) (*PropDef, error) {
	def := &PropDef{Name: name, Type: TypeString}

	switch t := raw.Type.(type) {
	case nil:
	case string:
		def.Type = normalizeType(t)
	case []interface{}:
		def.Enum = make(map[string]struct{}, len(t))
		for _, v := range t {
			def.Enum[fmt.Sprintf("%v", v)] = struct{}{}
		}
	case map[string]interface{}:
		if vt, ok := t["value_type"].(string); ok {
			def.Type = normalizeType(vt)
		}
		if units, ok := t["units"].([]interface{}); ok {
			for _, u := range units {
				def.Units = append(def.Units, fmt.Sprintf("%v", u))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported Type declaration %T", raw.Type)
	}

	switch r := raw.Req.(type) {
	case nil:
	case bool:
		def.Required = r
	case string:
		b, ok := utils.ParseLooseBool(r)
		def.Required = ok && b
	}

	if raw.Minimum != nil {
		def.HasMin = true
		def.Min = *raw.Minimum
	}
	if raw.Maximum != nil {
		def.HasMax = true
		def.Max = *raw.Maximum
	}
	return def, nil
}

func normalizeType(s string) PropType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString
	case "int", "integer":
		return TypeInt
	case "float", "number", "double":
		return TypeFloat
	case "bool", "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	case "datetime":
		return TypeDateTime
	case "list", "array":
		return TypeArray
	case "object":
		return TypeObject
	default:
		return TypeString
	}
}

func normalizeMultiplicity(s string) string {
	v := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch v {
	case OneToOne, OneToMany, ManyToMany, ManyToOne:
		return v
	default:
		return DefaultMultiplicity
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Kinds returns the declared node kinds, sorted.
func (m *Model) Kinds() []string {
	return sortedKeys(m.nodes)
}

// HasKind reports whether kind is declared in the model.
func (m *Model) HasKind(kind string) bool {
	_, ok := m.nodes[kind]
	return ok
}

// PropsForNode returns the declared property set for a kind. The second
// return is false when the kind is unknown.
func (m *Model) PropsForNode(kind string) (map[string]*PropDef, bool) {
	node, ok := m.nodes[kind]
	if !ok {
		return nil, false
	}
	return node.Props, true
}

// Prop returns the property definition for (kind, prop).
func (m *Model) Prop(kind, prop string) (*PropDef, bool) {
	node, ok := m.nodes[kind]
	if !ok {
		return nil, false
	}
	def, ok := node.Props[prop]
	return def, ok
}

// PropType returns the declared type tag for a property of a kind. Unknown
// properties default to String.
func (m *Model) PropType(kind, prop string) PropType {
	if def, ok := m.Prop(kind, prop); ok {
		return def.Type
	}
	return TypeString
}

// Relationship resolves the declared edge from src to dst kind.
func (m *Model) Relationship(src, dst string) (Relationship, bool) {
	rel, ok := m.ends[endKey{src: src, dst: dst}]
	return rel, ok
}

// RelationshipByLabel returns the declared relationship for an edge label.
func (m *Model) RelationshipByLabel(label string) (*RelationshipDef, bool) {
	rel, ok := m.relationships[label]
	return rel, ok
}

// RelProp returns the declared definition of an edge property.
func (m *Model) RelProp(label, prop string) (*PropDef, bool) {
	rel, ok := m.relationships[label]
	if !ok {
		return nil, false
	}
	def, ok := rel.Props[prop]
	return def, ok
}

// IDField returns the declared id property for a kind, empty when the
// properties file does not map one.
func (m *Model) IDField(kind string) string {
	return m.props.IDFields[kind]
}

// ID reads a record's identity from the declared id field of its kind.
func (m *Model) ID(kind string, record types.RawRecord) string {
	field := m.IDField(kind)
	if field == "" {
		return ""
	}
	return strings.TrimSpace(record[field])
}

// HasRelPropDelimiter reports whether the column contains the edge property
// delimiter at all, declared label or not. Such columns never become own
// properties.
func (m *Model) HasRelPropDelimiter(column string) bool {
	return strings.Contains(column, m.props.RelPropDelimiter)
}

// SplitRelProp splits an edge-property column into label and property name.
// ok is false when the column has no delimiter or the label is undeclared.
func (m *Model) SplitRelProp(column string) (label, prop string, ok bool) {
	i := strings.Index(column, m.props.RelPropDelimiter)
	if i < 0 {
		return "", "", false
	}
	label = column[:i]
	prop = column[i+len(m.props.RelPropDelimiter):]
	_, ok = m.relationships[label]
	return label, prop, ok
}

// IsRelationshipProperty reports whether a column attaches a property to an
// edge: it contains the configured delimiter and names a declared label.
func (m *Model) IsRelationshipProperty(column string) bool {
	_, _, ok := m.SplitRelProp(column)
	return ok
}

// ExtraProps returns derived sibling properties for a coerced value,
// currently the <prop>_unit column for unit-bearing properties.
func (m *Model) ExtraProps(kind, prop string, value interface{}) map[string]interface{} {
	def, ok := m.Prop(kind, prop)
	if !ok || len(def.Units) == 0 || value == nil || value == "" {
		return nil
	}
	return map[string]interface{}{prop + "_unit": def.Units[0]}
}

// SavesParentID reports whether a kind copies parent ids inline onto its
// own nodes.
func (m *Model) SavesParentID(kind string) bool {
	_, ok := m.props.SaveParentID[kind]
	return ok
}

// UUIDForNode derives the deterministic node identity: UUIDv5 of the
// signature within the kind-scoped namespace. The namespace chain is
// url-namespace -> domain -> kind, so identities are stable across loads
// and disjoint across kinds and datasets.
func (m *Model) UUIDForNode(kind, signature string) string {
	return uuid.NewSHA1(m.namespace(kind), []byte(signature)).String()
}

func (m *Model) namespace(kind string) uuid.UUID {
	if ns, ok := m.namespaces[kind]; ok {
		return ns
	}
	return uuid.NewSHA1(m.domainNS, []byte(kind))
}

// IndexSpecs returns every index the loader must ensure before writing:
// one single-property index per id_fields entry, then the composite
// indexes declared in the properties file.
func (m *Model) IndexSpecs() []IndexSpec {
	specs := make([]IndexSpec, 0, len(m.props.IDFields)+len(m.props.Indexes))
	for _, kind := range sortedKeys(m.props.IDFields) {
		specs = append(specs, IndexSpec{Kind: kind, Props: []string{m.props.IDFields[kind]}})
	}
	return append(specs, m.props.Indexes...)
}

// Domain returns the UUID namespace domain for this dataset.
func (m *Model) Domain() string {
	return m.props.Domain
}

// RelPropDelimiter returns the configured edge-property column delimiter.
func (m *Model) RelPropDelimiter() string {
	return m.props.RelPropDelimiter
}

// ListDelimiter returns the configured delimiter for Array cell values.
func (m *Model) ListDelimiter() string {
	return m.props.ListDelimiter
}
