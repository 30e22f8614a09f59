// Engine is the Storage interface of §4.A: versioned vertex/edge
// storage accessed exclusively through transactions with MVCC
// snapshot semantics, a write-ahead log, and an in-memory lock
// manager. It is grounded on the teacher's pkg/storage package shape
// (a concrete engine type implementing CRUD + scan + transaction
// methods) but replaces the teacher's single-version Node/Edge store
// with the version-chain model of mvcc.go.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/orneryd/nordgraph/internal/catalog"
	"github.com/orneryd/nordgraph/internal/errs"
	"github.com/orneryd/nordgraph/internal/model"
	"github.com/orneryd/nordgraph/internal/storage/kv"
	"github.com/orneryd/nordgraph/internal/value"
)

// Engine ties together the MVCC store, lock manager, WAL and a
// catalog, and exposes the operations listed in §4.A.
type Engine struct {
	catalog *catalog.Catalog
	mvcc    *mvccStore
	locks   *LockManager
	wal     *WAL
	backend kv.Backend // optional durable mirror of latest committed state
	log     zerolog.Logger

	defaultIsolation Isolation
	walSyncMode      SyncMode
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithBackend(b kv.Backend) Option { return func(e *Engine) { e.backend = b } }
func WithWAL(w *WAL) Option           { return func(e *Engine) { e.wal = w } }
func WithDefaultIsolation(i Isolation) Option {
	return func(e *Engine) { e.defaultIsolation = i }
}

// WithWALSyncMode sets the fsync policy NewEngine uses for its own
// internally-constructed WAL (ignored when WithWAL supplies one
// already open), wired from internal/config's WAL sync setting.
func WithWALSyncMode(m SyncMode) Option {
	return func(e *Engine) { e.walSyncMode = m }
}

// NewEngine constructs an Engine. If dir holds WAL segments, state is
// recovered from them before the engine accepts new transactions.
func NewEngine(cat *catalog.Catalog, walDir string, log zerolog.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		catalog:          cat,
		locks:            NewLockManager(),
		log:              log.With().Str("component", "storage").Logger(),
		defaultIsolation: Snapshot,
	}
	for _, o := range opts {
		o(e)
	}

	switch {
	case walDir != "":
		// The WAL is authoritative for recovery whenever it's
		// configured; a backend present alongside it still receives
		// every commit's writes (see Tx.Commit) but isn't read at
		// startup, so WAL-based recovery can't be shadowed by a stale
		// backend mirror.
		recovered, err := recoverMVCC(walDir, e.log)
		if err != nil {
			return nil, err
		}
		e.mvcc = recovered
		wal, err := NewWALWithSync(walDir, 64<<20, e.log, e.walSyncMode)
		if err != nil {
			return nil, err
		}
		e.wal = wal
	case e.backend != nil:
		// No WAL: the backend is the engine's only durable state, so
		// recovery means loading its latest committed keys back into
		// a fresh MVCC store (§4.A's "durable mirror" made real).
		store := newMVCCStore()
		if err := loadFromBackend(context.Background(), e.backend, store); err != nil {
			return nil, err
		}
		e.mvcc = store
	default:
		e.mvcc = newMVCCStore()
	}
	return e, nil
}

// loadFromBackend primes store with every key backend currently
// holds, each treated as already committed (§4.A's "durable mirror of
// latest committed state").
func loadFromBackend(ctx context.Context, backend kv.Backend, store *mvccStore) error {
	return backend.IteratePrefix(ctx, nil, func(key, data []byte) bool {
		store.primeVersion(string(key), append([]byte(nil), data...))
		return true
	})
}

func (e *Engine) Close() error {
	if e.wal != nil {
		if err := e.wal.Close(); err != nil {
			return err
		}
	}
	if e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

// --- Transaction control ---

// Tx is a handle to an in-flight transaction: its MVCC snapshot, the
// set of keys it has written (for commit/rollback bookkeeping), and
// its lock guard.
type Tx struct {
	engine        *Engine
	id            uint64
	snap          Snap
	guard         *LockGuard
	writeKeys     []string
	backendWrites []backendWrite
	status        TransactionStatus
}

// backendWrite records one buffered write for replay against the
// engine's kv.Backend on commit, independent of the WAL's own log
// record (the backend stores latest-value-only, not a version chain).
type backendWrite struct {
	key       string
	tombstone bool
	data      []byte
}

type TransactionStatus string

const (
	TxActive     TransactionStatus = "active"
	TxCommitted  TransactionStatus = "committed"
	TxRolledBack TransactionStatus = "rolled_back"
)

// Begin starts a transaction at the given isolation level (§4.A).
func (e *Engine) Begin(isolation Isolation) *Tx {
	id := e.mvcc.beginTx()
	if e.wal != nil {
		e.wal.Append(LogRecord{TxID: id, Type: LogBegin})
	}
	return &Tx{
		engine: e,
		id:     id,
		snap:   e.mvcc.beginSnapshot(id, isolation),
		status: TxActive,
	}
}

// acquireLocks is called before any write to serialize concurrent
// writers to the same entity (§4.A, §5). Locks are released all at
// once by the lock manager's ReleaseAll(tx.id) on commit/rollback, so
// successive calls within the same transaction don't need to merge
// guards — each call's guard is independently valid until then.
func (tx *Tx) acquireLocks(locks ...LockType) error {
	g, err := tx.engine.locks.TryLockBatch(tx.id, locks)
	if err != nil {
		return errs.Transaction("LOCK_CONFLICT", err.Error())
	}
	tx.guard = g
	return nil
}

// Commit applies every buffered write atomically: stamps versions
// with a commit timestamp, force-flushes a commit WAL record, and
// releases locks.
func (tx *Tx) Commit() error {
	if tx.status != TxActive {
		return errs.ErrTxNotActive
	}
	commitTS := tx.engine.mvcc.nextVersion()
	tx.engine.mvcc.commitVersions(tx.writeKeys, tx.id, commitTS)
	if tx.engine.wal != nil {
		if _, err := tx.engine.wal.Append(LogRecord{TxID: tx.id, Type: LogCommit}); err != nil {
			return err
		}
	}
	if tx.engine.backend != nil {
		if err := tx.persistToBackend(); err != nil {
			return err
		}
	}
	tx.status = TxCommitted
	tx.engine.mvcc.endTx(tx.id)
	tx.engine.locks.ReleaseAll(tx.id)
	return nil
}

// Rollback discards every buffered write.
func (tx *Tx) Rollback() error {
	if tx.status != TxActive {
		return errs.ErrTxNotActive
	}
	tx.engine.mvcc.discardVersions(tx.writeKeys, tx.id)
	if tx.engine.wal != nil {
		tx.engine.wal.Append(LogRecord{TxID: tx.id, Type: LogRollback})
	}
	tx.status = TxRolledBack
	tx.engine.mvcc.endTx(tx.id)
	tx.engine.locks.ReleaseAll(tx.id)
	return nil
}

func (tx *Tx) write(key string, tombstone bool, data []byte) {
	tx.engine.mvcc.appendVersion(key, tx.id, tombstone, data)
	tx.writeKeys = append(tx.writeKeys, key)
	if tx.engine.backend != nil {
		tx.backendWrites = append(tx.backendWrites, backendWrite{key: key, tombstone: tombstone, data: data})
	}
	if tx.engine.wal != nil {
		typ := LogUpdate
		if tombstone {
			typ = LogDelete
		}
		tx.engine.wal.Append(LogRecord{TxID: tx.id, Type: typ, Key: key, New: data})
	}
}

// persistToBackend mirrors this transaction's writes into the
// engine's kv.Backend (§4.A: "the backend is an optional durable
// mirror of latest committed state"), keyed identically to the mvcc
// store, so a restart with no WAL configured can recover committed
// state from the backend alone via loadFromBackend.
func (tx *Tx) persistToBackend() error {
	ctx := context.Background()
	for _, w := range tx.backendWrites {
		if w.tombstone {
			if err := tx.engine.backend.Delete(ctx, []byte(w.key)); err != nil {
				return err
			}
			continue
		}
		if err := tx.engine.backend.Set(ctx, []byte(w.key), w.data); err != nil {
			return err
		}
	}
	return nil
}

// --- Vertex operations ---

func (e *Engine) GetVertex(tx *Tx, space string, vid model.VID) (*model.Vertex, bool, error) {
	v, ok := e.mvcc.read(vertexKey(space, vid), tx.snap)
	if !ok || v.tombstone {
		return nil, false, nil
	}
	vx, err := decodeVertex(v.data)
	if err != nil {
		return nil, false, err
	}
	vx.Version = v.seq
	return vx, true, nil
}

func (e *Engine) InsertVertex(tx *Tx, space string, vx *model.Vertex) error {
	if err := tx.acquireLocks(VertexLock(space, vx.VID.String())); err != nil {
		return err
	}
	if existing, ok, _ := e.GetVertex(tx, space, vx.VID); ok && existing != nil {
		return errs.Semantic("VERTEX_EXISTS", fmt.Sprintf("vertex %s already exists", vx.VID))
	}
	data, err := encodeVertex(vx)
	if err != nil {
		return err
	}
	tx.write(vertexKey(space, vx.VID), false, data)
	for _, t := range vx.Tags {
		tx.write(vertexTagIndexKey(space, t.Name, vx.VID), false, []byte(vx.VID.String()))
	}
	return nil
}

func (e *Engine) UpdateVertex(tx *Tx, space string, vx *model.Vertex) error {
	if err := tx.acquireLocks(VertexLock(space, vx.VID.String())); err != nil {
		return err
	}
	data, err := encodeVertex(vx)
	if err != nil {
		return err
	}
	tx.write(vertexKey(space, vx.VID), false, data)
	for _, t := range vx.Tags {
		tx.write(vertexTagIndexKey(space, t.Name, vx.VID), false, []byte(vx.VID.String()))
	}
	return nil
}

// UpsertVertex implements the Insert/Update "insertable" policy (§4.C):
// update the vertex if present, otherwise insert it with tags (the
// caller-supplied tags resolve SPEC_FULL Open Question 3: the tags
// inferred from the preceding MATCH/pattern, not an empty tag list).
func (e *Engine) UpsertVertex(tx *Tx, space string, vx *model.Vertex) error {
	if _, ok, err := e.GetVertex(tx, space, vx.VID); err != nil {
		return err
	} else if ok {
		return e.UpdateVertex(tx, space, vx)
	}
	return e.InsertVertex(tx, space, vx)
}

func (e *Engine) DeleteVertex(tx *Tx, space string, vid model.VID) error {
	if err := tx.acquireLocks(VertexLock(space, vid.String())); err != nil {
		return err
	}
	tx.write(vertexKey(space, vid), true, nil)
	return nil
}

func (e *Engine) ScanVertices(tx *Tx, space string) []*model.Vertex {
	var out []*model.Vertex
	e.mvcc.scanVisible(vertexScanPrefix(space), tx.snap, func(_ string, data []byte) {
		if vx, err := decodeVertex(data); err == nil {
			out = append(out, vx)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].VID.String() < out[j].VID.String() })
	return out
}

func (e *Engine) ScanVerticesByTag(tx *Tx, space, tag string) []*model.Vertex {
	var out []*model.Vertex
	e.mvcc.scanVisible(vertexTagIndexPrefix(space, tag), tx.snap, func(_ string, data []byte) {
		vid := model.StringVID(string(data))
		if vx, ok, _ := e.GetVertex(tx, space, vid); ok {
			out = append(out, vx)
		}
	})
	return out
}

// --- Edge operations ---

func (e *Engine) GetEdge(tx *Tx, space string, k model.EdgeKey) (*model.Edge, bool, error) {
	v, ok := e.mvcc.read(edgeDataKey(space, k), tx.snap)
	if !ok || v.tombstone {
		return nil, false, nil
	}
	ed, err := decodeEdge(v.data)
	if err != nil {
		return nil, false, err
	}
	ed.Version = v.seq
	return ed, true, nil
}

func (e *Engine) InsertEdge(tx *Tx, space string, ed *model.Edge) error {
	if err := tx.acquireLocks(EdgeLock(space, ed.Src.String(), ed.Dst.String(), ed.Type, ed.Rank)); err != nil {
		return err
	}
	data, err := encodeEdge(ed)
	if err != nil {
		return err
	}
	tx.write(edgeDataKey(space, ed.EdgeKey), false, data)
	tx.write(edgeOutIndexKey(space, ed.EdgeKey), false, []byte(ed.Dst.String()))
	tx.write(edgeInIndexKey(space, ed.EdgeKey), false, []byte(ed.Src.String()))
	tx.write(edgeTypeIndexKey(space, ed.Type, ed.EdgeKey), false, nil)
	return nil
}

func (e *Engine) UpdateEdge(tx *Tx, space string, ed *model.Edge) error {
	if err := tx.acquireLocks(EdgeLock(space, ed.Src.String(), ed.Dst.String(), ed.Type, ed.Rank)); err != nil {
		return err
	}
	data, err := encodeEdge(ed)
	if err != nil {
		return err
	}
	tx.write(edgeDataKey(space, ed.EdgeKey), false, data)
	return nil
}

func (e *Engine) DeleteEdge(tx *Tx, space string, k model.EdgeKey) error {
	if err := tx.acquireLocks(EdgeLock(space, k.Src.String(), k.Dst.String(), k.Type, k.Rank)); err != nil {
		return err
	}
	tx.write(edgeDataKey(space, k), true, nil)
	tx.write(edgeOutIndexKey(space, k), true, nil)
	tx.write(edgeInIndexKey(space, k), true, nil)
	tx.write(edgeTypeIndexKey(space, k.Type, k), true, nil)
	return nil
}

func (e *Engine) ScanEdgesByType(tx *Tx, space, edgeType string) []*model.Edge {
	var keys []model.EdgeKey
	e.mvcc.scanVisible(edgeTypeIndexPrefix(space, edgeType), tx.snap, func(key string, _ []byte) {
		if k, ok := parseEdgeTypeIndexKey(key); ok {
			keys = append(keys, k)
		}
	})
	var out []*model.Edge
	for _, k := range keys {
		if ed, ok, _ := e.GetEdge(tx, space, k); ok {
			out = append(out, ed)
		}
	}
	return out
}

// GetNodeEdges implements get_node_edges(space, vid, direction): a
// single-side adjacency scan touching only the out- or in-index, per
// §3's design rationale for storing edges twice.
func (e *Engine) GetNodeEdges(tx *Tx, space string, vid model.VID, dir model.Direction) []*model.Edge {
	var out []*model.Edge
	seen := make(map[string]struct{})

	if dir == model.DirOut || dir == model.DirBoth {
		e.mvcc.scanVisible(edgeOutIndexPrefix(space, vid.String()), tx.snap, func(key string, dstB []byte) {
			if k, ok := parseEdgeOutIndexKey(key); ok {
				if _, dup := seen[k.Key()]; dup {
					return
				}
				if ed, ok, _ := e.GetEdge(tx, space, k); ok {
					out = append(out, ed)
					seen[k.Key()] = struct{}{}
				}
			}
			_ = dstB
		})
	}
	if dir == model.DirIn || dir == model.DirBoth {
		e.mvcc.scanVisible(edgeInIndexPrefix(space, vid.String()), tx.snap, func(key string, _ []byte) {
			if k, ok := parseEdgeInIndexKey(key); ok {
				if _, dup := seen[k.Key()]; dup {
					return
				}
				if ed, ok, _ := e.GetEdge(tx, space, k); ok {
					out = append(out, ed)
					seen[k.Key()] = struct{}{}
				}
			}
		})
	}
	return out
}

// --- Secondary index lookups (§4.A lookup_index) ---

// IndexPut records that the given owner id's value under indexName
// hashes to keyStr; called by the Insert/Update executors alongside
// InsertVertex/InsertEdge to keep an index's entries consistent
// within the same transaction (§3 invariant 3/6).
func (e *Engine) IndexPut(tx *Tx, space, indexName, keyStr, ownerID string) {
	tx.write(propertyIndexKey(space, indexName, keyStr, ownerID), false, []byte(ownerID))
}

func (e *Engine) IndexDelete(tx *Tx, space, indexName, keyStr, ownerID string) {
	tx.write(propertyIndexKey(space, indexName, keyStr, ownerID), true, nil)
}

// LookupIndex returns every owner id recorded under keyStr for the
// named index.
func (e *Engine) LookupIndex(tx *Tx, space, indexName, keyStr string) []string {
	var out []string
	e.mvcc.scanVisible(propertyIndexPrefix(space, indexName, keyStr), tx.snap, func(_ string, data []byte) {
		out = append(out, string(data))
	})
	return out
}

// RangeLookupIndex returns owner ids for every key in [begin, end]
// under indexName, used by IndexScan's range scan_type.
func (e *Engine) RangeLookupIndex(tx *Tx, space, indexName string, begin, end value.Value) []string {
	var out []string
	e.mvcc.scanVisible(fmt.Sprintf("IDX|%s|%s|", space, indexName), tx.snap, func(key string, data []byte) {
		k := parseIndexKeyValue(key)
		if k == "" {
			return
		}
		// Keys are encoded via value.HashKey's ordering-preserving string
		// forms for string/int; numeric range comparison degrades to
		// string comparison, documented limitation (see DESIGN.md).
		if k >= begin.String() && k <= end.String() {
			out = append(out, string(data))
		}
	})
	return out
}

// --- catalog.EntitySampler (ANALYZE support) ---

func (e *Engine) SampleColumn(ctx context.Context, space, target, property string, sampleFraction float64) ([]value.Value, int64, error) {
	_ = ctx
	tx := e.Begin(ReadCommitted)
	defer tx.Rollback()

	var samples []value.Value
	var total int64
	step := uint64(1)
	if sampleFraction > 0 && sampleFraction < 1 {
		step = uint64(1 / sampleFraction)
		if step == 0 {
			step = 1
		}
	}
	var i uint64
	visit := func(props map[string]value.Value) {
		total++
		if i%step == 0 {
			if v, ok := props[property]; ok {
				samples = append(samples, v)
			} else {
				samples = append(samples, value.Null())
			}
		}
		i++
	}
	for _, vx := range e.ScanVertices(tx, space) {
		if vx.HasTag(target) {
			visit(vx.TagProperties(target))
		}
	}
	for _, ed := range e.ScanEdgesByType(tx, space, target) {
		visit(ed.Properties)
	}
	return samples, total, nil
}

// Stats returns storage-level counters, mirroring the teacher's
// NodeCount/EdgeCount.
func (e *Engine) NodeCount(tx *Tx, space string) int64 { return int64(len(e.ScanVertices(tx, space))) }
