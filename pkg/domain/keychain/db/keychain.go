package db

import "context"

type KeychainInterface interface {
	// Lock runs criticalSection while holding a row lock on the named
	// keychain, registering the name on its first use.
	//
	// Loops on different hosts issue keys through this lock, so a keychain
	// never gets two concurrent writers racing on its backing Secret.
	Lock(ctx context.Context, name string, criticalSection func(context.Context) error) error
}
