package slices

import (
	"sort"
)

// map each element in sli.
//
// args:
//     - sli : slice of `T`s
//     - mapper : mapping function from T to R
// return:
//     slice of `R`s.
//     each element indexed `N` is given with `mapper(sli[N])` .
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// Map over sli with mapper.
//
// If mapper causes error, return (nil, error).
//
// Otherwise, return (mapping result, nil).
func MapUntilError[T any, R any](sli []T, mapper func(v T) (R, error)) ([]R, error) {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		r, err := mapper(v)
		if err != nil {
			return nil, err
		}
		ret[nth] = r
	}
	return ret, nil
}

// convert slice to map.
//
// args:
//     - sli: slice of `T`s
//     - getkey: function to get key from `T`
// return:
//     map of `K` to `T`. If keys conflict, the last one wins.
func ToMap[T any, K comparable](sli []T, getkey func(v T) K) map[K]T {
	ret := make(map[K]T, len(sli))
	for _, v := range sli {
		ret[getkey(v)] = v
	}
	return ret
}

// get keys of map.
//
// order of keys is not stable.
func KeysOf[T any, K comparable](m map[K]T) []K {
	ret := make([]K, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	return ret
}

// get values of map.
//
// order of values is not stable.
func ValuesOf[T any, K comparable](m map[K]T) []T {
	ret := make([]T, 0, len(m))
	for _, v := range m {
		ret = append(ret, v)
	}
	return ret
}

// pick up elements satisfying predicator.
func Filter[T any](vs []T, predicator func(T) bool) []T {
	ret := make([]T, 0, len(vs))
	for _, v := range vs {
		if predicator(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// find the first element satisfying predicator.
//
// return:
//     the found element and true, or zero-value and false.
func First[T any](sli []T, predicator func(T) bool) (T, bool) {
	for _, v := range sli {
		if predicator(v) {
			return v, true
		}
	}
	return *new(T), false
}

// return true if at least one element satisfies predicator.
func Any[T any](sli []T, predicator func(T) bool) bool {
	_, ok := First(sli, predicator)
	return ok
}

// return new sorted slice. sli is left unchanged.
func Sorted[T any](sli []T, less func(a, b T) bool) []T {
	ret := make([]T, len(sli))
	copy(ret, sli)
	sort.Slice(ret, func(i, j int) bool { return less(ret[i], ret[j]) })
	return ret
}

// concatenate slices into a new single slice.
func Concat[T any](sli ...[]T) []T {
	size := 0
	for _, s := range sli {
		size += len(s)
	}
	ret := make([]T, 0, size)
	for _, s := range sli {
		ret = append(ret, s...)
	}
	return ret
}
