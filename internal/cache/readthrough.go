package cache

import "time"

// ReadThrough memoizes loader results for reference data on the caller's side.
// The commission engine itself never sees this type; it stays deterministic
// on its inputs.
type ReadThrough[K comparable, V any] struct {
	cache Cache[K, V]
	ttl   time.Duration
}

func NewReadThrough[K comparable, V any](ttl time.Duration) *ReadThrough[K, V] {
	return &ReadThrough[K, V]{cache: NewTTLCache[K, V](), ttl: ttl}
}

// Get returns the cached value or invokes loader and caches its result.
// Loader errors are returned as-is and nothing is cached.
func (r *ReadThrough[K, V]) Get(key K, loader func() (V, error)) (V, error) {
	if value, ok := r.cache.Get(key); ok {
		return value, nil
	}
	value, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}
	r.cache.Set(key, value, r.ttl)
	return value, nil
}

// Invalidate drops a single key.
func (r *ReadThrough[K, V]) Invalidate(key K) {
	r.cache.Delete(key)
}
