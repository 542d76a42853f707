package trips

import (
	"sort"
	"sync"
)

// keyedMutex serializes pin order rewrites per whiteboard within this process.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the locks for keys in a fixed order and returns the matching unlock.
func (k *keyedMutex) Lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, key)
	}
	sort.Strings(uniq)

	held := make([]*lockEntry, 0, len(uniq))
	for _, key := range uniq {
		k.mu.Lock()
		if k.entries == nil {
			k.entries = make(map[string]*lockEntry)
		}
		e, ok := k.entries[key]
		if !ok {
			e = &lockEntry{}
			k.entries[key] = e
		}
		e.refs++
		k.mu.Unlock()

		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		k.mu.Lock()
		defer k.mu.Unlock()
		for i, key := range uniq {
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.entries, key)
			}
		}
	}
}
