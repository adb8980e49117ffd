package show

import (
	"context"
	"encoding/json"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_APP_NAME = "APP_NAME"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Display an App with given name.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_APP_NAME, Required: true,
				Help: "Name of the App to be shown.",
			},
		},
		common.NewTask(Task()),
	)
}

func Task() common.Task[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		env string,
		client trest.TugClient,
		cl flarc.Commandline[struct{}],
		params []any,
	) error {
		args := cl.Args()
		name := args[ARG_APP_NAME][0]

		app, err := client.GetApp(ctx, name, env)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(app); err != nil {
			return err
		}

		return nil
	}
}
