package tex2typst

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the per-function capacity of the result cache.
const DefaultCacheSize = 1024

// CacheStats describes the result cache of one bundle function.
type CacheStats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
}

type cacheKey struct {
	input   string
	options string
}

type functionCache struct {
	entries *lru.Cache[cacheKey, string]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// resultCache memoizes single-call results per function. A nil cache is
// valid and caches nothing.
type resultCache struct {
	capacity int

	mu     sync.Mutex
	byFunc map[string]*functionCache
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return nil
	}
	rc := &resultCache{capacity: capacity, byFunc: make(map[string]*functionCache)}
	// Both directions are always reported, even before their first call.
	rc.function(FuncTex2Typst)
	rc.function(FuncTypst2Tex)
	return rc
}

func (rc *resultCache) function(name string) *functionCache {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	fc, ok := rc.byFunc[name]
	if !ok {
		// lru.New only fails for a non-positive size.
		entries, _ := lru.New[cacheKey, string](rc.capacity)
		fc = &functionCache{entries: entries}
		rc.byFunc[name] = fc
	}
	return fc
}

// lookup returns the cached result and the key to store a fresh result
// under. ok is false when opts cannot be encoded as a key.
func (rc *resultCache) lookup(function, input string, opts Options) (result string, key cacheKey, hit, ok bool) {
	if rc == nil {
		return "", cacheKey{}, false, false
	}
	if len(opts) == 0 {
		opts = nil
	}
	encoded, err := json.Marshal(opts)
	if err != nil {
		return "", cacheKey{}, false, false
	}
	key = cacheKey{input: input, options: string(encoded)}
	fc := rc.function(function)
	if result, hit = fc.entries.Get(key); hit {
		fc.hits.Add(1)
		return result, key, true, true
	}
	fc.misses.Add(1)
	return "", key, false, true
}

func (rc *resultCache) add(function string, key cacheKey, result string) {
	if rc == nil {
		return
	}
	rc.function(function).entries.Add(key, result)
}

func (rc *resultCache) stats() map[string]CacheStats {
	out := make(map[string]CacheStats)
	if rc == nil {
		return out
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for name, fc := range rc.byFunc {
		out[name] = CacheStats{
			Hits:     fc.hits.Load(),
			Misses:   fc.misses.Load(),
			Size:     fc.entries.Len(),
			Capacity: rc.capacity,
		}
	}
	return out
}

func (rc *resultCache) purge() {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for _, fc := range rc.byFunc {
		fc.entries.Purge()
		fc.hits.Store(0)
		fc.misses.Store(0)
	}
}
