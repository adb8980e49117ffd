package app

import "github.com/taskflow-dev/tugboat/pkg/domain/app/db"

type Interface interface {
	Database() db.AppInterface
}

type impl struct {
	db db.AppInterface
}

func New(db db.AppInterface) Interface {
	return &impl{db: db}
}

func (i *impl) Database() db.AppInterface {
	return i.db
}
