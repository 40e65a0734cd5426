package core

import (
	"sync"

	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
)

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry is a thread-safe, ordered set of codecs.  There is no package
// level instance; every facade builds its own.
type Registry struct {
	mu     sync.RWMutex
	order  []Codec
	codecs map[format.FourCC]Codec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[format.FourCC]Codec)}
}

// Register adds c.  Registering a second codec under the same ID fails.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codecs[c.ID()]; ok {
		return apperrors.New(apperrors.CategoryRegistry, "register "+c.ID().String(), apperrors.ErrDuplicateCodec)
	}
	r.codecs[c.ID()] = c
	r.order = append(r.order, c)
	return nil
}

// Lookup returns the codec registered under id.
func (r *Registry) Lookup(id format.FourCC) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.codecs[id]
	r.mu.RUnlock()
	return c, ok
}

// Codecs returns the registered codecs in registration order.
func (r *Registry) Codecs() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Codec, len(r.order))
	copy(out, r.order)
	return out
}

// MaxPrefixLen is the look-ahead needed to sniff any codec in enabled.
func (r *Registry) MaxPrefixLen(enabled []format.FourCC) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, id := range enabled {
		if c, ok := r.codecs[id]; ok && c.PrefixLen() > n {
			n = c.PrefixLen()
		}
	}
	return n
}

// Sniff walks enabled in order and returns the first codec whose signature
// matches prefix.  IDs that are not registered are skipped.
func (r *Registry) Sniff(prefix []byte, closed bool, enabled []format.FourCC) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range enabled {
		c, ok := r.codecs[id]
		if !ok {
			continue
		}
		if c.Sniff(prefix, closed) {
			return c, true
		}
	}
	return nil, false
}
