package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis instance without reading each other's entries:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(measurementHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(measurementHash, opts)
}

// ChartKey generates a prefixed key for chart caching.
func (k *ScopedKeyer) ChartKey(layoutHash string, opts ChartKeyOpts) string {
	return k.prefix + k.inner.ChartKey(layoutHash, opts)
}
