package rm

import (
	"context"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_APP_NAME = "APP_NAME"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Unregister an App and dispose its cluster objects.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_APP_NAME, Required: true,
				Help: "Name of the App to be removed.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Unregister an App.

Both slots of the App are handed to the garbage collector along with
their Services, ConfigMaps and the monitoring stack, if any.
An App with a rollout in progress cannot be removed; abort it first.
`),
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

		if err := client.DeleteApp(ctx, name); err != nil {
			return err
		}

		logger.Printf("app %s is removed.\n", name)
		return nil
	}
}
