package cmp

// MapEq returns true when a and b hold the same key-value pairs.
func MapEq[K comparable, V comparable](a, b map[K]V) bool {
	return MapEqWith(a, b, func(x, y V) bool { return x == y })
}

// MapEqWith is MapEq with custom equality over values.
func MapEqWith[K comparable, V any, U any](a map[K]V, b map[K]U, eq func(V, U) bool) bool {
	return len(a) == len(b) && MapGeqWith(a, b, eq)
}

// MapGeq returns true when a has all entries of b (a is superset of b).
func MapGeq[K comparable, V comparable](a, b map[K]V) bool {
	return MapGeqWith(a, b, func(x, y V) bool { return x == y })
}

// MapGeqWith is MapGeq with custom equality over values.
func MapGeqWith[K comparable, V any, U any](a map[K]V, b map[K]U, eq func(V, U) bool) bool {
	for k, bv := range b {
		av, ok := a[k]
		if !ok || !eq(av, bv) {
			return false
		}
	}
	return true
}

// MapLeq returns true when b has all entries of a (a is subset of b).
func MapLeq[K comparable, V comparable](a, b map[K]V) bool {
	return MapGeq(b, a)
}

// MapLeqWith is MapLeq with custom equality over values.
func MapLeqWith[K comparable, V any, U any](a map[K]V, b map[K]U, eq func(U, V) bool) bool {
	return MapGeqWith(b, a, eq)
}

// MapMatch tests each value in m with the predicator registered for its key.
//
// It returns true only when m and predicators have exactly the same key set
// and every predicator accepts its value.
func MapMatch[K comparable, V any](m map[K]V, predicators map[K]func(V) bool) bool {
	if len(m) != len(predicators) {
		return false
	}
	for k, v := range m {
		p, ok := predicators[k]
		if !ok || !p(v) {
			return false
		}
	}
	return true
}
