// Write-ahead log (§4.A, §6), grounded on the teacher's pkg/storage/wal.go
// (WALEntry, WALConfig, rotation, snapshot+replay recovery), generalized
// from the teacher's single flat WALEntry{Operation,Data,Checksum} into
// the spec's richer LogRecord{lsn, tx_id, type, key, old, new, prev_lsn}
// so a transaction's undo chain can be walked backwards during crash
// recovery.
package storage

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/orneryd/nordgraph/internal/errs"
)

// LogRecordType enumerates the WAL entry kinds of §4.A.
type LogRecordType string

const (
	LogBegin        LogRecordType = "begin"
	LogInsert       LogRecordType = "insert"
	LogUpdate       LogRecordType = "update"
	LogDelete       LogRecordType = "delete"
	LogCommit       LogRecordType = "commit"
	LogRollback     LogRecordType = "rollback"
	LogCheckpoint   LogRecordType = "checkpoint"
	LogCompensation LogRecordType = "compensation"
)

// LogRecord is one WAL entry.
type LogRecord struct {
	LSN      uint64        `json:"lsn"`
	TxID     uint64        `json:"tx_id"`
	Type     LogRecordType `json:"type"`
	Key      string        `json:"key"`
	Old      []byte        `json:"old,omitempty"`
	New      []byte        `json:"new,omitempty"`
	PrevLSN  uint64        `json:"prev_lsn"`
	Ts       int64         `json:"ts"`
}

// WAL writes length-prefixed LogRecords to rotating files, named
// transaction_<unix_millis>.log, exactly per §6's wire format:
// `[u32 little-endian length][serialized LogRecord bytes]`.
type WAL struct {
	mu        sync.Mutex
	dir       string
	file      *os.File
	writer    *bufio.Writer
	lsn       uint64
	maxBytes  int64
	curBytes  int64
	log       zerolog.Logger
	closed    bool
	syncMode  SyncMode
}

// SyncMode controls when a commit's buffered WAL bytes are fsynced to
// disk, mirroring the teacher's WALConfig.SyncMode knob (§4.A: "commit
// forces a flush", generalized into a configurable durability/latency
// tradeoff rather than an unconditional fsync).
type SyncMode string

const (
	// SyncAlways fsyncs the WAL file on every LogCommit record (the
	// default, and the only mode that matches §4.A's literal wording).
	SyncAlways SyncMode = "always"
	// SyncNever flushes the buffered writer but skips the fsync
	// syscall, trading durability against commit latency.
	SyncNever SyncMode = "never"
)

// NewWAL opens (creating if needed) a WAL directory and starts a
// fresh rotation segment, fsyncing on every commit.
func NewWAL(dir string, maxBytes int64, log zerolog.Logger) (*WAL, error) {
	return NewWALWithSync(dir, maxBytes, log, SyncAlways)
}

// NewWALWithSync is NewWAL with an explicit SyncMode, wired from
// internal/config's WAL sync setting.
func NewWALWithSync(dir string, maxBytes int64, log zerolog.Logger, mode SyncMode) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.NewStorageError(errs.StorageDbError, "mkdir wal dir", err)
	}
	if mode == "" {
		mode = SyncAlways
	}
	w := &WAL{dir: dir, maxBytes: maxBytes, log: log.With().Str("component", "wal").Logger(), syncMode: mode}
	if err := w.rotate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *WAL) rotate() error {
	if w.writer != nil {
		w.writer.Flush()
		w.file.Close()
	}
	name := fmt.Sprintf("transaction_%d.log", time.Now().UnixMilli())
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errs.NewStorageError(errs.StorageDbError, "open wal segment", err)
	}
	w.file = f
	w.writer = bufio.NewWriter(f)
	w.curBytes = 0
	w.log.Info().Str("segment", name).Msg("wal rotated")
	return nil
}

func (w *WAL) nextLSN() uint64 { return atomic.AddUint64(&w.lsn, 1) }

// Append writes rec, forcing a flush to disk on LogCommit (§4.A:
// "Records are buffered; commit forces a flush").
func (w *WAL) Append(rec LogRecord) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errs.ErrTxNotActive
	}
	rec.LSN = w.nextLSN()
	rec.Ts = time.Now().UnixNano()

	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, errs.NewStorageError(errs.StorageSerialization, "marshal log record", err)
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.writer.Write(lenBuf[:]); err != nil {
		return 0, errs.NewStorageError(errs.StorageDbError, "write wal length prefix", err)
	}
	if _, err := w.writer.Write(payload); err != nil {
		return 0, errs.NewStorageError(errs.StorageDbError, "write wal payload", err)
	}
	w.curBytes += int64(4 + len(payload))

	forceFlush := rec.Type == LogCommit
	if forceFlush {
		if err := w.writer.Flush(); err != nil {
			return 0, errs.NewStorageError(errs.StorageDbError, "flush wal", err)
		}
		if w.syncMode != SyncNever {
			if err := w.file.Sync(); err != nil {
				return 0, errs.NewStorageError(errs.StorageDbError, "fsync wal", err)
			}
		}
	}
	if w.maxBytes > 0 && w.curBytes >= w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	return rec.LSN, nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.writer != nil {
		w.writer.Flush()
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// segmentFiles lists a WAL directory's segments in recovery order:
// "Recovery reads files in sorted order" (§6) — sorted by the
// embedded unix-millis timestamp, which is also lexicographic for
// same-width numbers, but we parse and sort numerically to be safe
// across different width timestamps.
func segmentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type seg struct {
		name string
		ts   int64
	}
	var segs []seg
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "transaction_") || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(e.Name(), "transaction_"), ".log")
		ts, _ := strconv.ParseInt(tsStr, 10, 64)
		segs = append(segs, seg{name: e.Name(), ts: ts})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].ts < segs[j].ts })
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = filepath.Join(dir, s.name)
	}
	return out, nil
}

// ReplayAll reads every record from every segment file in dir, in
// recovery order, calling fn for each.
func ReplayAll(dir string, fn func(LogRecord) error) error {
	files, err := segmentFiles(dir)
	if err != nil {
		return errs.NewStorageError(errs.StorageDbError, "list wal segments", err)
	}
	for _, path := range files {
		if err := replayFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(path string, fn func(LogRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.NewStorageError(errs.StorageDbError, "open wal segment for replay", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var lenBuf [4]byte
		_, err := io.ReadFull(r, lenBuf[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				break // truncated tail record from a mid-write crash; stop here
			}
			return errs.NewStorageError(errs.StorageDbError, "read wal length prefix", err)
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			break // truncated payload; partial last write, stop recovery here
		}
		var rec LogRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return errs.NewStorageError(errs.StorageSerialization, "unmarshal wal record", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// checksum is retained for parity with the teacher's CRC32 integrity
// field even though our length-prefixed JSON framing already detects
// truncation; a future on-disk format revision may want tamper
// detection independent of JSON validity.
func checksum(b []byte) uint32 { return crc32.ChecksumIEEE(b) }
