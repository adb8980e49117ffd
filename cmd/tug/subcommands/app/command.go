package app

import (
	app_find "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app/find"
	app_register "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app/register"
	app_rm "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app/rm"
	app_show "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app/show"
	app_template "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app/template"
	app_update "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app/update"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	register, err := app_register.New()
	if err != nil {
		return nil, err
	}

	show, err := app_show.New()
	if err != nil {
		return nil, err
	}

	find, err := app_find.New()
	if err != nil {
		return nil, err
	}

	update, err := app_update.New()
	if err != nil {
		return nil, err
	}

	rm, err := app_rm.New()
	if err != nil {
		return nil, err
	}

	template, err := app_template.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage Tugboat Apps.",
		struct{}{},
		flarc.WithSubcommand("register", register),
		flarc.WithSubcommand("show", show),
		flarc.WithSubcommand("find", find),
		flarc.WithSubcommand("update", update),
		flarc.WithSubcommand("rm", rm),
		flarc.WithSubcommand("template", template),
	)
}
