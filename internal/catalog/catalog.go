// Package catalog implements schema and catalog management (§4.B):
// spaces, tags, edge types, properties and indexes, plus the
// type-compatibility checks DML relies on. It follows the teacher's
// pkg/storage/schema.go shape — a single reader-writer-locked manager
// holding map-keyed registries — generalized from Neo4j-style
// label/constraint maps to the spec's Space→Tag/EdgeType→Property
// hierarchy, and extended with the statistics/ANALYZE machinery §4.E
// needs for cost estimation.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/value"
)

// VIDType is the declared vertex-id representation for a Space.
type VIDType struct {
	Int64       bool
	FixedString int // width, if not Int64
}

// Space is a logical database (§3).
type Space struct {
	Name          string
	PartitionNum  int
	ReplicaFactor int
	VIDType       VIDType
	ID            string
}

// DataType enumerates the scalar property types a schema can declare.
type DataType string

const (
	TBool     DataType = "bool"
	TInt64    DataType = "int64"
	TDouble   DataType = "double"
	TString   DataType = "string"
	TDate     DataType = "date"
	TTime     DataType = "time"
	TDateTime DataType = "datetime"
	TDuration DataType = "duration"
	TList     DataType = "list"
	TMap      DataType = "map"
)

// PropertyDef is one declared property of a Tag or EdgeType.
type PropertyDef struct {
	Name     string
	Type     DataType
	Nullable bool
	Default  *value.Value
}

// TagSchema is the ordered property list of a Tag (§3).
type TagSchema struct {
	ID         string
	Name       string
	Properties []PropertyDef
	AutoCreated bool
}

// EdgeTypeSchema is the ordered property list of an EdgeType.
type EdgeTypeSchema struct {
	ID          string
	Name        string
	Properties  []PropertyDef
	AutoCreated bool
}

// IndexKind distinguishes what an Index is built over.
type IndexKind string

const (
	IndexOnTag      IndexKind = "tag"
	IndexOnEdge     IndexKind = "edge"
	IndexFulltext   IndexKind = "fulltext"
)

// Index is (name, target, properties, kind, unique) per §3.
type Index struct {
	Name       string
	Target     string // tag or edge-type name
	Properties []string
	Kind       IndexKind
	Unique     bool
}

// Catalog is the process-wide, read-mostly schema store. Writers
// (DDL) are rare; readers happen on every operation, so access is
// guarded by a single sync.RWMutex (Design Notes §9: "Global catalog
// mutation ... reader-writer lock; writers are rare, readers are on
// every operation").
type Catalog struct {
	mu sync.RWMutex

	spaces    map[string]*Space
	tags      map[string]map[string]*TagSchema      // space -> tag name -> schema
	edgeTypes map[string]map[string]*EdgeTypeSchema // space -> type name -> schema
	indexes   map[string]map[string]*Index          // space -> index name -> index

	stats map[string]*TableStatistics // space -> aggregate stats

	log zerolog.Logger
}

// New creates an empty Catalog.
func New(log zerolog.Logger) *Catalog {
	return &Catalog{
		spaces:    make(map[string]*Space),
		tags:      make(map[string]map[string]*TagSchema),
		edgeTypes: make(map[string]map[string]*EdgeTypeSchema),
		indexes:   make(map[string]map[string]*Index),
		stats:     make(map[string]*TableStatistics),
		log:       log.With().Str("component", "catalog").Logger(),
	}
}

// --- Space DDL ---

// CreateSpace registers a space. Idempotent when the target already
// exists with an identical shape, per §6's "DDL is expected to be
// idempotent for create when the target exists with identical shape."
func (c *Catalog) CreateSpace(s Space) (*Space, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.spaces[s.Name]; ok {
		if sameSpaceShape(existing, &s) {
			return existing, nil
		}
		return nil, errs.Semantic("SPACE_EXISTS", fmt.Sprintf("space %q already exists with a different shape", s.Name))
	}
	s.ID = uuid.NewString()
	c.spaces[s.Name] = &s
	c.tags[s.Name] = make(map[string]*TagSchema)
	c.edgeTypes[s.Name] = make(map[string]*EdgeTypeSchema)
	c.indexes[s.Name] = make(map[string]*Index)
	c.stats[s.Name] = newTableStatistics()
	c.log.Info().Str("space", s.Name).Msg("space created")
	return &s, nil
}

func sameSpaceShape(a, b *Space) bool {
	return a.PartitionNum == b.PartitionNum && a.ReplicaFactor == b.ReplicaFactor && a.VIDType == b.VIDType
}

func (c *Catalog) DropSpace(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.spaces[name]; !ok {
		return errs.NotFound(fmt.Sprintf("space %q not found", name))
	}
	delete(c.spaces, name)
	delete(c.tags, name)
	delete(c.edgeTypes, name)
	delete(c.indexes, name)
	delete(c.stats, name)
	return nil
}

func (c *Catalog) GetSpace(name string) (*Space, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.spaces[name]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("space %q not found", name))
	}
	return s, nil
}

func (c *Catalog) ListSpaces() []*Space {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Space, 0, len(c.spaces))
	for _, s := range c.spaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- Tag / EdgeType DDL ---

func (c *Catalog) CreateTag(space string, tag TagSchema) (*TagSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.tags[space]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("space %q not found", space))
	}
	if existing, ok := byName[tag.Name]; ok {
		if sameProperties(existing.Properties, tag.Properties) {
			return existing, nil
		}
		return nil, errs.Semantic("TAG_EXISTS", fmt.Sprintf("tag %q already exists with a different shape", tag.Name))
	}
	tag.ID = uuid.NewString()
	byName[tag.Name] = &tag
	return &tag, nil
}

func (c *Catalog) DropTag(space, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.tags[space]
	if !ok {
		return errs.NotFound(fmt.Sprintf("space %q not found", space))
	}
	if _, ok := byName[name]; !ok {
		return errs.NotFound(fmt.Sprintf("tag %q not found", name))
	}
	delete(byName, name)
	return nil
}

func (c *Catalog) GetTag(space, name string) (*TagSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byName, ok := c.tags[space]
	if !ok {
		return nil, false
	}
	t, ok := byName[name]
	return t, ok
}

func (c *Catalog) CreateEdgeType(space string, et EdgeTypeSchema) (*EdgeTypeSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.edgeTypes[space]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("space %q not found", space))
	}
	if existing, ok := byName[et.Name]; ok {
		if sameProperties(existing.Properties, et.Properties) {
			return existing, nil
		}
		return nil, errs.Semantic("EDGE_TYPE_EXISTS", fmt.Sprintf("edge type %q already exists with a different shape", et.Name))
	}
	et.ID = uuid.NewString()
	byName[et.Name] = &et
	return &et, nil
}

func (c *Catalog) DropEdgeType(space, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.edgeTypes[space]
	if !ok {
		return errs.NotFound(fmt.Sprintf("space %q not found", space))
	}
	if _, ok := byName[name]; !ok {
		return errs.NotFound(fmt.Sprintf("edge type %q not found", name))
	}
	delete(byName, name)
	return nil
}

func (c *Catalog) GetEdgeType(space, name string) (*EdgeTypeSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byName, ok := c.edgeTypes[space]
	if !ok {
		return nil, false
	}
	et, ok := byName[name]
	return et, ok
}

func sameProperties(a, b []PropertyDef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Type != b[i].Type || a[i].Nullable != b[i].Nullable {
			return false
		}
	}
	return true
}

// --- Auto-create policy ---

// InferPropertyType implements §4.B's auto-create policy: ints become
// int64, floats become double, strings become TString with no declared
// width (unlimited). All auto-created properties default to
// nullable = true.
func InferPropertyType(v value.Value) PropertyDef {
	switch v.Kind {
	case value.KindInt:
		return PropertyDef{Type: TInt64, Nullable: true}
	case value.KindFloat:
		return PropertyDef{Type: TDouble, Nullable: true}
	case value.KindString:
		return PropertyDef{Type: TString, Nullable: true}
	case value.KindBool:
		return PropertyDef{Type: TBool, Nullable: true}
	default:
		return PropertyDef{Type: TString, Nullable: true}
	}
}

// AutoCreateTag creates a tag schema on the fly when DML introduces an
// undeclared tag, inferring property types from the supplied values.
func (c *Catalog) AutoCreateTag(space, name string, props map[string]value.Value) (*TagSchema, error) {
	if existing, ok := c.GetTag(space, name); ok {
		return existing, nil
	}
	defs := make([]PropertyDef, 0, len(props))
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := InferPropertyType(props[k])
		d.Name = k
		defs = append(defs, d)
	}
	return c.CreateTag(space, TagSchema{Name: name, Properties: defs, AutoCreated: true})
}

// --- Index DDL ---

func (c *Catalog) CreateIndex(space string, idx Index) (*Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.indexes[space]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("space %q not found", space))
	}
	byName[idx.Name] = &idx
	return &idx, nil
}

func (c *Catalog) DropIndex(space, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byName, ok := c.indexes[space]
	if !ok {
		return errs.NotFound(fmt.Sprintf("space %q not found", space))
	}
	if _, ok := byName[name]; !ok {
		return errs.NotFound(fmt.Sprintf("index %q not found", name))
	}
	delete(byName, name)
	return nil
}

func (c *Catalog) GetIndex(space, name string) (*Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byName, ok := c.indexes[space]
	if !ok {
		return nil, false
	}
	idx, ok := byName[name]
	return idx, ok
}

// IndexesFor returns every index declared over the given tag/edge-type
// target within a space, used by the planner's index-selection rules.
func (c *Catalog) IndexesFor(space, target string) []*Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byName, ok := c.indexes[space]
	if !ok {
		return nil
	}
	var out []*Index
	for _, idx := range byName {
		if idx.Target == target {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- Property validation (§3 invariant 2, SPEC_FULL supplement #6) ---

// ValidateProperties checks that every supplied property value is
// type-compatible with its declaration, or null if declared nullable,
// for the named tag/edge-type. Exposed standalone (not only inside
// Insert) per SPEC_FULL's schema-validator supplement; MutateVertices
// calls it before writing to an already-declared tag. The auto-create
// path (AutoCreateTag) does not call it.
func (c *Catalog) ValidateProperties(defs []PropertyDef, props map[string]value.Value) error {
	byName := make(map[string]PropertyDef, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	for k, v := range props {
		def, declared := byName[k]
		if !declared {
			continue // permissive: undeclared properties pass through (auto-create handles new tags)
		}
		if v.IsNull() {
			if !def.Nullable {
				return errs.Semantic("NOT_NULL_VIOLATION", fmt.Sprintf("property %q is not nullable", k))
			}
			continue
		}
		if !value.Compatible(v, zeroValueFor(def.Type)) {
			return errs.Semantic("TYPE_MISMATCH", fmt.Sprintf("property %q: value of kind %s incompatible with declared type %s", k, v.Kind, def.Type))
		}
	}
	return nil
}

func zeroValueFor(t DataType) value.Value {
	switch t {
	case TBool:
		return value.Bool(false)
	case TInt64:
		return value.Int(0)
	case TDouble:
		return value.Float(0)
	case TString:
		return value.String("")
	default:
		return value.Null()
	}
}
