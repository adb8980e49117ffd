package db

import (
	tapp "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	tgarbage "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
	tkeychain "github.com/taskflow-dev/tugboat/pkg/domain/keychain/db"
	trelease "github.com/taskflow-dev/tugboat/pkg/domain/release/db"
	trollout "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	tschema "github.com/taskflow-dev/tugboat/pkg/domain/schema/db"
)

type TugDatabase interface {
	App() tapp.AppInterface
	Release() trelease.ReleaseInterface
	Rollout() trollout.RolloutInterface
	Garbage() tgarbage.GarbageInterface
	Schema() tschema.SchemaInterface
	Keychain() tkeychain.KeychainInterface
	Close() error
}
