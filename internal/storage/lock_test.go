package storage

import "testing"

func TestTryLockBatchGrantsDisjointLocks(t *testing.T) {
	lm := NewLockManager()
	g, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")})
	if err != nil || g == nil {
		t.Fatalf("expected lock to be granted, got err=%v", err)
	}
}

func TestTryLockBatchConflictsOnSameKeyDifferentTx(t *testing.T) {
	lm := NewLockManager()
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := lm.TryLockBatch(2, []LockType{VertexLock("s", "a")}); err == nil {
		t.Fatalf("expected conflict when another tx holds the same vertex lock")
	}
}

func TestTryLockBatchSameTxCanReacquire(t *testing.T) {
	lm := NewLockManager()
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")}); err != nil {
		t.Fatalf("the same tx re-locking its own held key must not conflict: %v", err)
	}
}

func TestEdgeLocksWithDifferentDstDoNotConflict(t *testing.T) {
	lm := NewLockManager()
	if _, err := lm.TryLockBatch(1, []LockType{EdgeLock("s", "1", "2", "knows", 0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := lm.TryLockBatch(2, []LockType{EdgeLock("s", "1", "3", "knows", 0)}); err != nil {
		t.Fatalf("edges with the same src/type/rank but different dst must be independently lockable, got: %v", err)
	}
}

func TestEdgeLocksWithSameIdentityConflict(t *testing.T) {
	lm := NewLockManager()
	if _, err := lm.TryLockBatch(1, []LockType{EdgeLock("s", "1", "2", "knows", 0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := lm.TryLockBatch(2, []LockType{EdgeLock("s", "1", "2", "knows", 0)}); err == nil {
		t.Fatalf("the same edge identity locked by another tx must conflict")
	}
}

func TestReleaseFreesLockForOtherTx(t *testing.T) {
	lm := NewLockManager()
	g, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Release()
	if _, err := lm.TryLockBatch(2, []LockType{VertexLock("s", "a")}); err != nil {
		t.Fatalf("after release, another tx must be able to acquire the lock: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	lm := NewLockManager()
	g, _ := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")})
	g.Release()
	g.Release() // must not panic
}

func TestReleaseAllDropsEveryLockOwnedByTx(t *testing.T) {
	lm := NewLockManager()
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a"), VertexLock("s", "b")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lm.ReleaseAll(1)
	if _, err := lm.TryLockBatch(2, []LockType{VertexLock("s", "a"), VertexLock("s", "b")}); err != nil {
		t.Fatalf("ReleaseAll must free every lock the tx held: %v", err)
	}
}

func TestPoisonedTxCannotAcquireFurtherLocks(t *testing.T) {
	lm := NewLockManager()
	lm.Poison(1)
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")}); err == nil {
		t.Fatalf("a poisoned tx must not be able to acquire new locks")
	}
}

func TestReleaseAllClearsPoisonMark(t *testing.T) {
	lm := NewLockManager()
	lm.Poison(1)
	lm.ReleaseAll(1)
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "a")}); err != nil {
		t.Fatalf("ReleaseAll must clear the poison mark so the tx id can be reused: %v", err)
	}
}

func TestBatchLockingIsAllOrNothing(t *testing.T) {
	lm := NewLockManager()
	if _, err := lm.TryLockBatch(1, []LockType{VertexLock("s", "b")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := lm.TryLockBatch(2, []LockType{VertexLock("s", "a"), VertexLock("s", "b")}); err == nil {
		t.Fatalf("a batch must fail entirely if any one lock in it conflicts")
	}
	// "a" must not have been left locked by the failed batch attempt.
	if _, err := lm.TryLockBatch(3, []LockType{VertexLock("s", "a")}); err != nil {
		t.Fatalf("a failed batch must not leave partial locks held: %v", err)
	}
}
