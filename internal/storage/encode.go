// Key scheme and wire encoding for vertices/edges, grounded on the
// teacher's pkg/storage/badger.go key-prefix helpers (nodeKey,
// labelIndexKey, outgoingIndexKey, incomingIndexKey), generalized from
// Neo4j-style NodeID/EdgeID strings to the spec's typed VID and
// (src,dst,type,rank) edge identity.
package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/model"
)

func vertexKey(space string, vid model.VID) string {
	return fmt.Sprintf("V|%s|%s", space, vid.String())
}

func vertexTagIndexKey(space, tag string, vid model.VID) string {
	return fmt.Sprintf("TI|%s|%s|%s", space, tag, vid.String())
}

func vertexTagIndexPrefix(space, tag string) string {
	return fmt.Sprintf("TI|%s|%s|", space, tag)
}

func edgeDataKey(space string, k model.EdgeKey) string {
	return fmt.Sprintf("E|%s|%s|%s|%d|%s", space, k.Src.String(), k.Type, k.Rank, k.Dst.String())
}

func edgeOutIndexKey(space string, k model.EdgeKey) string {
	return fmt.Sprintf("AO|%s|%s|%s|%d|%s", space, k.Src.String(), k.Type, k.Rank, k.Dst.String())
}

func edgeOutIndexPrefix(space, vid string) string {
	return fmt.Sprintf("AO|%s|%s|", space, vid)
}

func edgeInIndexKey(space string, k model.EdgeKey) string {
	return fmt.Sprintf("AI|%s|%s|%s|%d|%s", space, k.Dst.String(), k.Type, k.Rank, k.Src.String())
}

func edgeInIndexPrefix(space, vid string) string {
	return fmt.Sprintf("AI|%s|%s|", space, vid)
}

func edgeTypeIndexKey(space, edgeType string, k model.EdgeKey) string {
	return fmt.Sprintf("ETI|%s|%s|%s|%s|%d", space, edgeType, k.Src.String(), k.Dst.String(), k.Rank)
}

func edgeTypeIndexPrefix(space, edgeType string) string {
	return fmt.Sprintf("ETI|%s|%s|", space, edgeType)
}

func vertexScanPrefix(space string) string { return fmt.Sprintf("V|%s|", space) }

func propertyIndexKey(space, indexName string, keyStr string, ownerID string) string {
	return fmt.Sprintf("IDX|%s|%s|%s|%s", space, indexName, keyStr, ownerID)
}

func propertyIndexPrefix(space, indexName, keyStr string) string {
	return fmt.Sprintf("IDX|%s|%s|%s|", space, indexName, keyStr)
}

func encodeVertex(v *model.Vertex) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errs.NewStorageError(errs.StorageSerialization, "encode vertex", err)
	}
	return b, nil
}

func decodeVertex(data []byte) (*model.Vertex, error) {
	var v model.Vertex
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errs.NewStorageError(errs.StorageSerialization, "decode vertex", err)
	}
	return &v, nil
}

func encodeEdge(e *model.Edge) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errs.NewStorageError(errs.StorageSerialization, "encode edge", err)
	}
	return b, nil
}

func decodeEdge(data []byte) (*model.Edge, error) {
	var e model.Edge
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errs.NewStorageError(errs.StorageSerialization, "decode edge", err)
	}
	return &e, nil
}

// The parse* helpers below reconstruct an EdgeKey from one of the
// index key encodings above. VIDs are reconstructed as StringVID:
// the index keys only ever need to round-trip through GetEdge, whose
// canonical lookup re-reads the full edge record, so the numeric-vs-
// string VID distinction doesn't need to survive this hop (the
// resulting EdgeKey.Src/Dst.String() form is all GetEdge uses).

func parseEdgeTypeIndexKey(key string) (model.EdgeKey, bool) {
	parts := strings.Split(key, "|")
	if len(parts) != 6 || parts[0] != "ETI" {
		return model.EdgeKey{}, false
	}
	rank, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return model.EdgeKey{}, false
	}
	return model.EdgeKey{
		Src:  model.StringVID(parts[3]),
		Dst:  model.StringVID(parts[4]),
		Type: parts[2],
		Rank: rank,
	}, true
}

func parseEdgeOutIndexKey(key string) (model.EdgeKey, bool) {
	parts := strings.Split(key, "|")
	if len(parts) != 6 || parts[0] != "AO" {
		return model.EdgeKey{}, false
	}
	rank, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return model.EdgeKey{}, false
	}
	return model.EdgeKey{
		Src:  model.StringVID(parts[2]),
		Dst:  model.StringVID(parts[5]),
		Type: parts[3],
		Rank: rank,
	}, true
}

func parseEdgeInIndexKey(key string) (model.EdgeKey, bool) {
	parts := strings.Split(key, "|")
	if len(parts) != 6 || parts[0] != "AI" {
		return model.EdgeKey{}, false
	}
	rank, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return model.EdgeKey{}, false
	}
	return model.EdgeKey{
		Src:  model.StringVID(parts[5]),
		Dst:  model.StringVID(parts[2]),
		Type: parts[3],
		Rank: rank,
	}, true
}

// parseIndexKeyValue extracts the encoded key value component from a
// propertyIndexKey-shaped string (IDX|space|indexName|keyStr|ownerID),
// used by RangeLookupIndex to compare against a scan's [begin,end].
func parseIndexKeyValue(key string) string {
	parts := strings.SplitN(key, "|", 5)
	if len(parts) != 5 || parts[0] != "IDX" {
		return ""
	}
	return parts[3]
}
