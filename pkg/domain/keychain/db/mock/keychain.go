// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	kdb "github.com/taskflow-dev/tugboat/pkg/domain/keychain/db"
	kdbmock "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/mock"
)

type KeychainInterface struct {
	Impl struct {
		Lock func(context.Context, string, func(context.Context) error) error
	}
	Calls struct {
		Lock kdbmock.CallLog[string]
	}
}

var _ kdb.KeychainInterface = &KeychainInterface{}

func NewKeychainInterface() *KeychainInterface {
	return &KeychainInterface{}
}

func (m *KeychainInterface) Lock(
	ctx context.Context, name string, criticalSection func(context.Context) error,
) error {
	m.Calls.Lock = append(m.Calls.Lock, name)
	if m.Impl.Lock != nil {
		return m.Impl.Lock(ctx, name, criticalSection)
	}

	panic(errors.New("should not be called"))
}
