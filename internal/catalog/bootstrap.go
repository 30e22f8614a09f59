package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SchemaFile is a declarative, YAML-encoded equivalent of a
// CREATE SPACE / CREATE TAG / CREATE EDGE / CREATE INDEX script (§4.B),
// grounded on the teacher's apoc/config.go LoadConfig (os.ReadFile +
// yaml.Unmarshal into a tagged struct). It lets a deployment bootstrap
// its schema from a file instead of issuing DDL operators one at a
// time through the planner.
type SchemaFile struct {
	Spaces []SpaceDecl `yaml:"spaces"`
}

// SpaceDecl declares one space and everything nested under it.
type SpaceDecl struct {
	Name          string          `yaml:"name"`
	PartitionNum  int             `yaml:"partitions"`
	ReplicaFactor int             `yaml:"replicas"`
	VIDType       string          `yaml:"vid_type"` // "int64" or "string:<width>"
	Tags          []TagDecl       `yaml:"tags"`
	EdgeTypes     []EdgeTypeDecl  `yaml:"edge_types"`
	Indexes       []IndexDecl     `yaml:"indexes"`
}

// TagDecl declares one tag and its properties.
type TagDecl struct {
	Name       string           `yaml:"name"`
	Properties []PropertyDecl   `yaml:"properties"`
}

// EdgeTypeDecl declares one edge type and its properties.
type EdgeTypeDecl struct {
	Name       string         `yaml:"name"`
	Properties []PropertyDecl `yaml:"properties"`
}

// PropertyDecl declares one property of a tag or edge type.
type PropertyDecl struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// IndexDecl declares one index over a tag or edge type.
type IndexDecl struct {
	Name       string   `yaml:"name"`
	Target     string   `yaml:"target"`
	Properties []string `yaml:"properties"`
	Kind       string   `yaml:"kind"` // "tag" | "edge" | "fulltext", default "tag"
	Unique     bool     `yaml:"unique"`
}

// LoadSchemaFile parses a YAML schema-bootstrap file without applying
// it; call Apply to create the declared spaces/tags/edge types/indexes
// against a Catalog.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf SchemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	return &sf, nil
}

// Apply creates every space, tag, edge type, and index the file
// declares, in declaration order. CreateSpace/CreateTag/CreateIndex are
// all idempotent on a matching shape (§4.B), so re-applying the same
// file against an already-bootstrapped catalog is a no-op.
func (sf *SchemaFile) Apply(c *Catalog) error {
	for _, sd := range sf.Spaces {
		vidType, err := parseVIDType(sd.VIDType)
		if err != nil {
			return fmt.Errorf("space %q: %w", sd.Name, err)
		}
		if _, err := c.CreateSpace(Space{
			Name:          sd.Name,
			PartitionNum:  sd.PartitionNum,
			ReplicaFactor: sd.ReplicaFactor,
			VIDType:       vidType,
		}); err != nil {
			return fmt.Errorf("space %q: %w", sd.Name, err)
		}

		for _, td := range sd.Tags {
			props, err := decodeProperties(td.Properties)
			if err != nil {
				return fmt.Errorf("space %q tag %q: %w", sd.Name, td.Name, err)
			}
			if _, err := c.CreateTag(sd.Name, TagSchema{Name: td.Name, Properties: props}); err != nil {
				return fmt.Errorf("space %q tag %q: %w", sd.Name, td.Name, err)
			}
		}

		for _, ed := range sd.EdgeTypes {
			props, err := decodeProperties(ed.Properties)
			if err != nil {
				return fmt.Errorf("space %q edge type %q: %w", sd.Name, ed.Name, err)
			}
			if _, err := c.CreateEdgeType(sd.Name, EdgeTypeSchema{Name: ed.Name, Properties: props}); err != nil {
				return fmt.Errorf("space %q edge type %q: %w", sd.Name, ed.Name, err)
			}
		}

		for _, id := range sd.Indexes {
			kind := IndexOnTag
			switch id.Kind {
			case "edge":
				kind = IndexOnEdge
			case "fulltext":
				kind = IndexFulltext
			case "", "tag":
				kind = IndexOnTag
			default:
				return fmt.Errorf("space %q index %q: unknown kind %q", sd.Name, id.Name, id.Kind)
			}
			if _, err := c.CreateIndex(sd.Name, Index{
				Name:       id.Name,
				Target:     id.Target,
				Properties: id.Properties,
				Kind:       kind,
				Unique:     id.Unique,
			}); err != nil {
				return fmt.Errorf("space %q index %q: %w", sd.Name, id.Name, err)
			}
		}
	}
	return nil
}

// BootstrapFromFile loads and applies a schema file against c in one
// call.
func BootstrapFromFile(c *Catalog, path string) error {
	sf, err := LoadSchemaFile(path)
	if err != nil {
		return err
	}
	return sf.Apply(c)
}

func decodeProperties(decls []PropertyDecl) ([]PropertyDef, error) {
	defs := make([]PropertyDef, 0, len(decls))
	for _, d := range decls {
		dt, err := parseDataType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", d.Name, err)
		}
		defs = append(defs, PropertyDef{Name: d.Name, Type: dt, Nullable: d.Nullable})
	}
	return defs, nil
}

func parseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case TBool, TInt64, TDouble, TString, TDate, TTime, TDateTime, TDuration, TList, TMap:
		return DataType(s), nil
	default:
		return "", fmt.Errorf("unknown property type %q", s)
	}
}

func parseVIDType(s string) (VIDType, error) {
	switch {
	case s == "" || s == "int64":
		return VIDType{Int64: true}, nil
	case s == "string":
		return VIDType{FixedString: 32}, nil
	default:
		var width int
		if _, err := fmt.Sscanf(s, "string:%d", &width); err != nil || width <= 0 {
			return VIDType{}, fmt.Errorf("unknown vid_type %q: must be int64, string, or string:<width>", s)
		}
		return VIDType{FixedString: width}, nil
	}
}
