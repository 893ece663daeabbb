package report

import (
	"sync"
	"time"

	"fintrack/internal/cache"
)

const (
	defaultTrackedOwners  = 1024
	defaultRangesPerOwner = 16
	defaultSnapshotTTL    = 10 * time.Minute
)

// Key identifies one report: an owner and the range it was built for.
type Key struct {
	Owner string
	Range string
}

// LatestTracker keeps, per key, only the result of the most recently begun
// computation. A slow request that finishes after a newer one is dropped.
// Snapshots live in an LRU keyed by owner, so memory is bounded by the number
// of owners and ranges held.
type LatestTracker struct {
	mu        sync.Mutex
	next      uint64
	pending   map[Key]build
	owners    *cache.LRUCache[*ownerReports]
	maxRanges int
	ttl       time.Duration
	now       func() time.Time
}

type build struct {
	seq     uint64
	started time.Time
}

// ownerReports holds the snapshots of one owner, oldest range first.
type ownerReports struct {
	order     []string
	snapshots map[string]Snapshot
}

func (o *ownerReports) put(rng string, snap Snapshot, limit int) {
	if _, ok := o.snapshots[rng]; !ok {
		o.order = append(o.order, rng)
	}
	o.snapshots[rng] = snap
	for len(o.order) > limit {
		delete(o.snapshots, o.order[0])
		o.order = o.order[1:]
	}
}

// NewLatestTracker holds up to maxOwners owners with up to maxRanges
// snapshots each, for ttl after their last publish. Zero values pick the
// defaults.
func NewLatestTracker(maxOwners, maxRanges int, ttl time.Duration) *LatestTracker {
	if maxOwners <= 0 {
		maxOwners = defaultTrackedOwners
	}
	if maxRanges <= 0 {
		maxRanges = defaultRangesPerOwner
	}
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &LatestTracker{
		pending:   map[Key]build{},
		owners:    cache.NewLRUCache[*ownerReports](maxOwners, ttl),
		maxRanges: maxRanges,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Begin hands out a sequence number for key; it supersedes every number
// handed out before for the same key.
func (l *LatestTracker) Begin(key Key) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneStale()
	l.next++
	l.pending[key] = build{seq: l.next, started: l.now()}
	return l.next
}

// Publish stores snapshot if seq is still the newest begun for key and
// reports whether it was kept.
func (l *LatestTracker) Publish(key Key, seq uint64, snapshot Snapshot) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.pending[key]
	if !ok || b.seq != seq {
		return false
	}
	delete(l.pending, key)

	reports, ok := l.owners.Get(key.Owner)
	if !ok {
		reports = &ownerReports{snapshots: map[string]Snapshot{}}
	}
	reports.put(key.Range, snapshot, l.maxRanges)
	l.owners.Set(key.Owner, reports)
	return true
}

// Abandon releases seq for key when its computation failed.
func (l *LatestTracker) Abandon(key Key, seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.pending[key]; ok && b.seq == seq {
		delete(l.pending, key)
	}
}

// Latest returns the last published snapshot for key.
func (l *LatestTracker) Latest(key Key) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	reports, ok := l.owners.Get(key.Owner)
	if !ok {
		return Snapshot{}, false
	}
	snap, ok := reports.snapshots[key.Range]
	return snap, ok
}

// ForgetOwner drops every snapshot of owner and invalidates computations
// already begun for it. It returns the number of snapshots dropped.
func (l *LatestTracker) ForgetOwner(owner string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.pending {
		if key.Owner == owner {
			delete(l.pending, key)
		}
	}
	reports, ok := l.owners.Get(owner)
	if !ok {
		return 0
	}
	l.owners.Delete(owner)
	return len(reports.snapshots)
}

// Size returns the number of owners with held snapshots and the number of
// computations in flight.
func (l *LatestTracker) Size() (owners, pending int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owners.Size(), len(l.pending)
}

// pruneStale drops builds that never published or abandoned within ttl.
func (l *LatestTracker) pruneStale() {
	cutoff := l.now().Add(-l.ttl)
	for key, b := range l.pending {
		if b.started.Before(cutoff) {
			delete(l.pending, key)
		}
	}
}
