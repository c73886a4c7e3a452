package cache

import (
	"slices"
	"strings"
)

// PositionKeyOpts are the inputs besides the graph content that influence a
// converged layout.
type PositionKeyOpts struct {
	Relations []string `json:"relations,omitempty"`
	Mode      string   `json:"mode,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// PositionsKey returns the key of the position snapshot for a graph.
	PositionsKey(graphHash string, opts PositionKeyOpts) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PositionsKey returns "positions:<hash>". The relation filter is order
// independent.
func (DefaultKeyer) PositionsKey(graphHash string, opts PositionKeyOpts) string {
	rels := slices.Clone(opts.Relations)
	slices.Sort(rels)
	return hashKey("positions", graphHash, strings.Join(rels, ","), opts.Mode)
}

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one backend.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "team-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// PositionsKey generates a prefixed key.
func (k *ScopedKeyer) PositionsKey(graphHash string, opts PositionKeyOpts) string {
	return k.prefix + k.inner.PositionsKey(graphHash, opts)
}
