package release

import "github.com/taskflow-dev/tugboat/pkg/domain/release/db"

type Interface interface {
	Database() db.ReleaseInterface
}

type impl struct {
	db db.ReleaseInterface
}

func New(db db.ReleaseInterface) Interface {
	return &impl{db: db}
}

func (i *impl) Database() db.ReleaseInterface {
	return i.db
}
