package cmp

// SliceEq returns true when a and b have the same elements in the same order.
func SliceEq[T comparable](a, b []T) bool {
	return SliceEqWith(a, b, func(x, y T) bool { return x == y })
}

// SliceEqWith is SliceEq with custom equality.
func SliceEqWith[T any, U any](a []T, b []U, eq func(T, U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SliceContains returns true when sli contains sub as a contiguous subsequence.
func SliceContains[T comparable](sli []T, sub []T) bool {
	if len(sli) < len(sub) {
		return false
	}
	if len(sub) == 0 {
		return true
	}
	for start := 0; start+len(sub) <= len(sli); start++ {
		if SliceEq(sli[start:start+len(sub)], sub) {
			return true
		}
	}
	return false
}

// SliceContentEq returns true when a and b have the same elements,
// ignoring order. Duplicated elements are counted.
func SliceContentEq[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[T]int, len(a))
	for _, v := range a {
		counts[v] += 1
	}
	for _, v := range b {
		counts[v] -= 1
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// SliceContentEqWith is SliceContentEq with custom equality.
//
// Each element in a is matched with an unused element in b.
func SliceContentEqWith[T any, U any](a []T, b []U, eq func(T, U) bool) bool {
	return len(a) == len(b) && SliceSubsetWith(a, b, eq)
}

// SliceSubsetWith returns true when each element in sub
// matches a distinct element in sli by eq.
func SliceSubsetWith[T any, U any](sli []T, sub []U, eq func(T, U) bool) bool {
	if len(sli) < len(sub) {
		return false
	}
	used := make([]bool, len(sli))
SUB:
	for _, s := range sub {
		for i, v := range sli {
			if used[i] || !eq(v, s) {
				continue
			}
			used[i] = true
			continue SUB
		}
		return false
	}
	return true
}
