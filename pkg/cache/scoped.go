package cache

// ScopedKeyer wraps a Keyer with a prefix so separate tenants of a shared
// cache never see each other's entries.
//
// Example usage:
//
//	// Jobs of one API client
//	clientKeyer := NewScopedKeyer(NewDefaultKeyer(), "client:abc123:")
//
//	// Sheets are content addressed and can be shared
//	sheetKeyer := NewDefaultKeyer()
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

// SheetKey generates a prefixed key for sheet caching.
func (k *ScopedKeyer) SheetKey(streamHash string, opts SheetKeyOpts) string {
	return k.prefix + k.inner.SheetKey(streamHash, opts)
}

// JobKey generates a prefixed key for a layout job.
func (k *ScopedKeyer) JobKey(id string) string {
	return k.prefix + k.inner.JobKey(id)
}
