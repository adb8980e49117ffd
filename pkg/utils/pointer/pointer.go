package pointer

// Ref returns a pointer to (a copy of) t.
func Ref[T any](t T) *T {
	return &t
}

// SafeDeref dereferences val, yielding the zero value for nil.
func SafeDeref[T any](val *T) T {
	if val == nil {
		return *new(T)
	}
	return *val
}
