// Package alphabet maps feature keys and nominal values to dense integer indices.
//
// An Alphabet grows while training and is locked once for application time.
// Locking is one-way: a locked alphabet never allocates again, and a new
// training round must start from Fresh.
package alphabet

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrLocked is returned when a locked alphabet (or a corpus built on one) is
// asked to start growing again.
var ErrLocked = errors.New("alphabet: dictionary is locked; start a fresh dictionary")

// Alphabet is a growable-then-lockable bijection between strings and IDs.
// It is safe for concurrent use; allocation of new IDs is serialised.
type Alphabet struct {
	mu     sync.Mutex
	toID   map[string]int
	toStr  []string
	locked bool
}

// New creates an empty, unlocked alphabet.
func New() *Alphabet {
	return &Alphabet{toID: make(map[string]int)}
}

// Lookup returns the ID for key. Unknown keys get the next ID unless the
// alphabet is locked, in which case ok is false and the key is not added.
func (a *Alphabet) Lookup(key string) (id int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.toID[key]; ok {
		return id, true
	}
	if a.locked {
		return -1, false
	}
	id = len(a.toStr)
	a.toID[key] = id
	a.toStr = append(a.toStr, key)
	return id, true
}

// Get returns the ID for key, or -1 if not found. It never allocates.
func (a *Alphabet) Get(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.toID[key]; ok {
		return id
	}
	return -1
}

// Key returns the string stored at id.
func (a *Alphabet) Key(id int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id < 0 || id >= len(a.toStr) {
		return "", false
	}
	return a.toStr[id], true
}

// Keys returns all keys in ID order.
func (a *Alphabet) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.toStr))
	copy(out, a.toStr)
	return out
}

// Size returns the number of entries.
func (a *Alphabet) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.toStr)
}

// Lock stops growth. It cannot be undone.
func (a *Alphabet) Lock() {
	a.mu.Lock()
	a.locked = true
	a.mu.Unlock()
}

// Locked reports whether growth has been stopped.
func (a *Alphabet) Locked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked
}

// Clone returns a deep copy that shares no state with a.
func (a *Alphabet) Clone() *Alphabet {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := &Alphabet{
		toID:   make(map[string]int, len(a.toID)),
		toStr:  make([]string, len(a.toStr)),
		locked: a.locked,
	}
	copy(c.toStr, a.toStr)
	for k, v := range a.toID {
		c.toID[k] = v
	}
	return c
}

// Fresh returns an empty, unlocked alphabet. This is the only way to resume
// training after a lock.
func (a *Alphabet) Fresh() *Alphabet {
	return New()
}

type alphabetJSON struct {
	Keys   []string `json:"keys"`
	Locked bool     `json:"locked"`
}

// MarshalJSON implements json.Marshaler.
func (a *Alphabet) MarshalJSON() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := a.toStr
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(alphabetJSON{Keys: keys, Locked: a.locked})
}

// UnmarshalJSON implements json.Unmarshaler. IDs are reassigned in stored
// key order, which reproduces the original assignment.
func (a *Alphabet) UnmarshalJSON(data []byte) error {
	var aj alphabetJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.toID = make(map[string]int, len(aj.Keys))
	a.toStr = make([]string, 0, len(aj.Keys))
	for _, k := range aj.Keys {
		if _, dup := a.toID[k]; dup {
			return errors.New("alphabet: duplicate key " + k)
		}
		a.toID[k] = len(a.toStr)
		a.toStr = append(a.toStr, k)
	}
	a.locked = aj.Locked
	return nil
}
