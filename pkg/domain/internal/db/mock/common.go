package mocks

// CallLog records the argument of each invocation of a mocked method.
type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}
