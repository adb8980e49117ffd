package utils

// IfNotNil maps t with mapper, passing a nil through untouched.
func IfNotNil[T any, U any](t *T, mapper func(*T) *U) *U {
	if t == nil {
		return nil
	}
	return mapper(t)
}

// Default dereferences p, falling back to d when p is nil.
func Default[T any](p *T, d T) T {
	if p != nil {
		return *p
	}
	return d
}
