// Package registry interns opaque task cache keys to task identifiers.
// Scheduling collaborators address tasks by the key of the computation
// (function plus arguments, already serialized by the caller); the storage
// core addresses them by TaskID. The registry is the bridge: the same key
// always maps to the same id for the registry's lifetime.
package registry

import (
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

var LookupCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskstore",
	Subsystem: "registry",
	Name:      "lookups",
}, []string{"source"})

const hotCacheSize = 100000

type hotEntry struct {
	key string
	id  records.TaskID
}

type Registry struct {
	ids  *xsync.MapOf[string, records.TaskID]
	hot  *lru.Cache[uint64, hotEntry]
	next atomic.Uint64
	log  utils.Logger
}

func New(log utils.Logger) *Registry {
	hot, _ := lru.New[uint64, hotEntry](hotCacheSize)
	return &Registry{
		ids: xsync.NewMapOf[string, records.TaskID](),
		hot: hot,
		log: log,
	}
}

// TaskID returns the task id interned for the key, allocating the next id
// on first sight. A fingerprint-keyed hot cache fronts the authoritative
// map; a cache hit is only trusted after comparing the full key, so
// fingerprint collisions fall through to the slow path.
func (r *Registry) TaskID(key []byte) records.TaskID {
	sum := xxhash.Sum64(key)
	if e, ok := r.hot.Get(sum); ok && e.key == string(key) {
		LookupCount.WithLabelValues("hot").Inc()
		return e.id
	}
	loaded := true
	id, _ := r.ids.LoadOrCompute(string(key), func() records.TaskID {
		loaded = false
		return records.TaskID(r.next.Add(1))
	})
	if loaded {
		LookupCount.WithLabelValues("map").Inc()
	} else {
		LookupCount.WithLabelValues("new").Inc()
		r.log.Debug("task key interned", "task", id)
	}
	r.hot.Add(sum, hotEntry{key: string(key), id: id})
	return id
}

// Lookup returns the id for an already interned key without allocating
// a new one.
func (r *Registry) Lookup(key []byte) (records.TaskID, bool) {
	sum := xxhash.Sum64(key)
	if e, ok := r.hot.Get(sum); ok && e.key == string(key) {
		return e.id, true
	}
	return r.ids.Load(string(key))
}

func (r *Registry) Len() int {
	return r.ids.Size()
}
