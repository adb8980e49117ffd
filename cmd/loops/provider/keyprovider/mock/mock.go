package mock

import (
	"context"
	"testing"

	keyprovider "github.com/taskflow-dev/tugboat/cmd/loops/provider/keyprovider"
	keychain "github.com/taskflow-dev/tugboat/pkg/domain/keychain/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/keychain/k8s/key"
)

type MockKeyProvider struct {
	t    *testing.T
	Impl struct {
		Provide     func(ctx context.Context, option ...keychain.KeyRequirement) (string, key.Key, error)
		GetKeychain func(ctx context.Context) (keychain.Keychain, error)
	}
}

var _ keyprovider.KeyProvider = (*MockKeyProvider)(nil)

func New(t *testing.T) *MockKeyProvider {
	return &MockKeyProvider{t: t}
}

func (m *MockKeyProvider) Provide(
	ctx context.Context, option ...keychain.KeyRequirement,
) (string, key.Key, error) {
	if m.Impl.Provide == nil {
		m.t.Fatal("Provide is not implemented")
	}
	return m.Impl.Provide(ctx, option...)
}

func (m *MockKeyProvider) GetKeychain(ctx context.Context) (keychain.Keychain, error) {
	if m.Impl.GetKeychain == nil {
		m.t.Fatal("GetKeychain is not implemented")
	}
	return m.Impl.GetKeychain(ctx)
}
