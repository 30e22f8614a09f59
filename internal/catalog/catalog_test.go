package catalog_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/value"
)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	return catalog.New(zerolog.Nop())
}

func TestCreateSpaceAssignsID(t *testing.T) {
	c := newCatalog(t)
	s, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "graph", s.Name)
}

func TestCreateSpaceIdempotentForSameShape(t *testing.T) {
	c := newCatalog(t)
	s1, err := c.CreateSpace(catalog.Space{Name: "graph", PartitionNum: 4})
	require.NoError(t, err)
	s2, err := c.CreateSpace(catalog.Space{Name: "graph", PartitionNum: 4})
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)
}

func TestCreateSpaceRejectsShapeMismatch(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph", PartitionNum: 4})
	require.NoError(t, err)
	_, err = c.CreateSpace(catalog.Space{Name: "graph", PartitionNum: 8})
	assert.Error(t, err)
}

func TestDropSpaceRemovesAllDependentState(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)
	_, err = c.CreateTag("graph", catalog.TagSchema{Name: "Person"})
	require.NoError(t, err)

	require.NoError(t, c.DropSpace("graph"))
	_, err = c.GetSpace("graph")
	assert.Error(t, err)

	_, err = c.CreateTag("graph", catalog.TagSchema{Name: "Person"})
	assert.Error(t, err, "space no longer exists so tag creation should fail")
}

func TestDropSpaceNotFound(t *testing.T) {
	c := newCatalog(t)
	assert.Error(t, c.DropSpace("missing"))
}

func TestListSpacesSortedByName(t *testing.T) {
	c := newCatalog(t)
	_, _ = c.CreateSpace(catalog.Space{Name: "zeta"})
	_, _ = c.CreateSpace(catalog.Space{Name: "alpha"})
	_, _ = c.CreateSpace(catalog.Space{Name: "mid"})

	names := make([]string, 0, 3)
	for _, s := range c.ListSpaces() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestCreateTagIdempotentAndConflict(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)

	props := []catalog.PropertyDef{{Name: "name", Type: catalog.TString, Nullable: true}}
	t1, err := c.CreateTag("graph", catalog.TagSchema{Name: "Person", Properties: props})
	require.NoError(t, err)

	t2, err := c.CreateTag("graph", catalog.TagSchema{Name: "Person", Properties: props})
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID)

	otherProps := []catalog.PropertyDef{{Name: "age", Type: catalog.TInt64, Nullable: true}}
	_, err = c.CreateTag("graph", catalog.TagSchema{Name: "Person", Properties: otherProps})
	assert.Error(t, err)
}

func TestCreateTagUnknownSpace(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateTag("missing", catalog.TagSchema{Name: "Person"})
	assert.Error(t, err)
}

func TestDropAndGetTag(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)
	_, err = c.CreateTag("graph", catalog.TagSchema{Name: "Person"})
	require.NoError(t, err)

	_, ok := c.GetTag("graph", "Person")
	assert.True(t, ok)

	require.NoError(t, c.DropTag("graph", "Person"))
	_, ok = c.GetTag("graph", "Person")
	assert.False(t, ok)

	assert.Error(t, c.DropTag("graph", "Person"))
}

func TestEdgeTypeLifecycle(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)

	et, err := c.CreateEdgeType("graph", catalog.EdgeTypeSchema{Name: "knows"})
	require.NoError(t, err)
	assert.NotEmpty(t, et.ID)

	_, ok := c.GetEdgeType("graph", "knows")
	assert.True(t, ok)

	require.NoError(t, c.DropEdgeType("graph", "knows"))
	_, ok = c.GetEdgeType("graph", "knows")
	assert.False(t, ok)
}

func TestAutoCreateTagInfersTypes(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)

	schema, err := c.AutoCreateTag("graph", "Person", map[string]value.Value{
		"name": value.String("alice"),
		"age":  value.Int(30),
	})
	require.NoError(t, err)
	assert.True(t, schema.AutoCreated)

	byName := map[string]catalog.PropertyDef{}
	for _, p := range schema.Properties {
		byName[p.Name] = p
	}
	assert.Equal(t, catalog.TString, byName["name"].Type)
	assert.Equal(t, catalog.TInt64, byName["age"].Type)
	assert.True(t, byName["name"].Nullable)
}

func TestAutoCreateTagReturnsExistingWithoutOverwrite(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)

	first, err := c.AutoCreateTag("graph", "Person", map[string]value.Value{"name": value.String("a")})
	require.NoError(t, err)

	second, err := c.AutoCreateTag("graph", "Person", map[string]value.Value{"other": value.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestIndexLifecycleAndIndexesFor(t *testing.T) {
	c := newCatalog(t)
	_, err := c.CreateSpace(catalog.Space{Name: "graph"})
	require.NoError(t, err)

	_, err = c.CreateIndex("graph", catalog.Index{Name: "idx_name", Target: "Person", Properties: []string{"name"}, Kind: catalog.IndexOnTag})
	require.NoError(t, err)
	_, err = c.CreateIndex("graph", catalog.Index{Name: "idx_age", Target: "Person", Properties: []string{"age"}, Kind: catalog.IndexOnTag})
	require.NoError(t, err)
	_, err = c.CreateIndex("graph", catalog.Index{Name: "idx_other", Target: "Company", Properties: []string{"name"}, Kind: catalog.IndexOnTag})
	require.NoError(t, err)

	found := c.IndexesFor("graph", "Person")
	require.Len(t, found, 2)
	assert.Equal(t, "idx_age", found[0].Name)
	assert.Equal(t, "idx_name", found[1].Name)

	_, ok := c.GetIndex("graph", "idx_name")
	assert.True(t, ok)

	require.NoError(t, c.DropIndex("graph", "idx_name"))
	_, ok = c.GetIndex("graph", "idx_name")
	assert.False(t, ok)

	assert.Error(t, c.DropIndex("graph", "idx_name"))
}

func TestValidatePropertiesRejectsNullOnNotNullable(t *testing.T) {
	c := newCatalog(t)
	defs := []catalog.PropertyDef{{Name: "age", Type: catalog.TInt64, Nullable: false}}
	err := c.ValidateProperties(defs, map[string]value.Value{"age": value.Null()})
	assert.Error(t, err)
}

func TestValidatePropertiesAllowsNullOnNullable(t *testing.T) {
	c := newCatalog(t)
	defs := []catalog.PropertyDef{{Name: "age", Type: catalog.TInt64, Nullable: true}}
	err := c.ValidateProperties(defs, map[string]value.Value{"age": value.Null()})
	assert.NoError(t, err)
}

func TestValidatePropertiesRejectsTypeMismatch(t *testing.T) {
	c := newCatalog(t)
	defs := []catalog.PropertyDef{{Name: "age", Type: catalog.TInt64, Nullable: true}}
	err := c.ValidateProperties(defs, map[string]value.Value{"age": value.Bool(true)})
	assert.Error(t, err)
}

func TestValidatePropertiesAllowsNumericCrossCompat(t *testing.T) {
	c := newCatalog(t)
	defs := []catalog.PropertyDef{{Name: "score", Type: catalog.TDouble, Nullable: true}}
	err := c.ValidateProperties(defs, map[string]value.Value{"score": value.Int(5)})
	assert.NoError(t, err)
}

func TestValidatePropertiesPermitsUndeclaredProperties(t *testing.T) {
	c := newCatalog(t)
	defs := []catalog.PropertyDef{{Name: "age", Type: catalog.TInt64, Nullable: true}}
	err := c.ValidateProperties(defs, map[string]value.Value{"nickname": value.String("a")})
	assert.NoError(t, err)
}
