package util

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value if p is nil.
func Deref[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}

// Coalesce returns the first non-zero value.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// MaskSecret keeps the first visiblePrefix bytes of s and hides the rest.
// Strings no longer than the prefix are hidden entirely.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}
