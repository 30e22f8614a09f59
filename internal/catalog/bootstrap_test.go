package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nordgraph/internal/catalog"
)

const sampleSchema = `
spaces:
  - name: social
    partitions: 4
    replicas: 1
    vid_type: int64
    tags:
      - name: Person
        properties:
          - name: name
            type: string
            nullable: false
          - name: age
            type: int64
            nullable: true
    edge_types:
      - name: knows
        properties:
          - name: since
            type: int64
            nullable: true
    indexes:
      - name: by_name
        target: Person
        properties: ["name"]
        kind: tag
        unique: true
`

func TestLoadSchemaFileParsesDeclarations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchema), 0o644))

	sf, err := catalog.LoadSchemaFile(path)
	require.NoError(t, err)
	require.Len(t, sf.Spaces, 1)
	assert.Equal(t, "social", sf.Spaces[0].Name)
	assert.Len(t, sf.Spaces[0].Tags, 1)
	assert.Len(t, sf.Spaces[0].EdgeTypes, 1)
	assert.Len(t, sf.Spaces[0].Indexes, 1)
}

func TestApplyCreatesEverythingDeclared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchema), 0o644))

	c := catalog.New(zerolog.Nop())
	require.NoError(t, catalog.BootstrapFromFile(c, path))

	_, err := c.GetSpace("social")
	require.NoError(t, err)

	tag, ok := c.GetTag("social", "Person")
	require.True(t, ok)
	assert.Len(t, tag.Properties, 2)

	et, ok := c.GetEdgeType("social", "knows")
	require.True(t, ok)
	assert.Len(t, et.Properties, 1)

	idx, ok := c.GetIndex("social", "by_name")
	require.True(t, ok)
	assert.True(t, idx.Unique)
	assert.Equal(t, catalog.IndexOnTag, idx.Kind)
}

func TestApplyIsIdempotentOnReapply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchema), 0o644))

	c := catalog.New(zerolog.Nop())
	require.NoError(t, catalog.BootstrapFromFile(c, path))
	require.NoError(t, catalog.BootstrapFromFile(c, path), "re-applying an unchanged schema file must not error")
}

func TestApplyRejectsUnknownPropertyType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
spaces:
  - name: social
    tags:
      - name: Person
        properties:
          - name: weird
            type: not-a-type
`), 0o644))

	c := catalog.New(zerolog.Nop())
	err := catalog.BootstrapFromFile(c, path)
	assert.Error(t, err)
}

func TestLoadSchemaFileMissingFileErrors(t *testing.T) {
	_, err := catalog.LoadSchemaFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
