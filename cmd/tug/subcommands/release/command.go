package release

import (
	release_find "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/release/find"
	release_new "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/release/new"
	release_show "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/release/show"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	new_, err := release_new.New()
	if err != nil {
		return nil, err
	}

	find, err := release_find.New()
	if err != nil {
		return nil, err
	}

	show, err := release_show.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage Tugboat Releases.",
		struct{}{},
		flarc.WithSubcommand("new", new_),
		flarc.WithSubcommand("find", find),
		flarc.WithSubcommand("show", show),
	)
}
