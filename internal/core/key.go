// Package core holds the data model shared by every layer of the engine:
// interned keys, versions, cell histories and the computed-value envelope.
// None of these types know how a value is computed; they only know how to
// be compared, unioned and looked up.
package core

import "sync"

// KeyID is the small integer the engine manipulates internally once a user
// key has been interned. Keys are never compared or hashed directly by the
// hot paths; only their KeyID is.
type KeyID uint32

// KeyIndex interns opaque, comparable user keys into KeyIDs. It is
// append-only: once assigned, a KeyID ↔ Key mapping never changes, which is
// what lets the rest of the engine pass KeyIDs around without locking.
type KeyIndex struct {
	mu   sync.RWMutex
	ids  map[any]KeyID
	keys []any
}

// NewKeyIndex returns an empty index.
func NewKeyIndex() *KeyIndex {
	return &KeyIndex{ids: make(map[any]KeyID)}
}

// Intern returns the KeyID for k, assigning a new one on first sight. k must
// be comparable; the engine panics on non-comparable keys the same way a Go
// map does, since both ultimately rely on map identity.
func (x *KeyIndex) Intern(k any) KeyID {
	x.mu.RLock()
	if id, ok := x.ids[k]; ok {
		x.mu.RUnlock()
		return id
	}
	x.mu.RUnlock()

	x.mu.Lock()
	defer x.mu.Unlock()
	if id, ok := x.ids[k]; ok {
		return id
	}
	id := KeyID(len(x.keys))
	x.keys = append(x.keys, k)
	x.ids[k] = id
	return id
}

// Get returns the user key that was interned as id. It panics if id was
// never assigned; callers only ever pass back IDs the index itself handed
// out, so this indicates an internal bug rather than bad input.
func (x *KeyIndex) Get(id KeyID) any {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.keys[id]
}

// Len reports how many distinct keys have been interned.
func (x *KeyIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.keys)
}
