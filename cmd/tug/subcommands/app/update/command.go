package update

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	"github.com/youta-t/flarc"
)

type Flag struct {
	Replicas   int    `flag:"replicas" metavar:"N" help:"New replica count per slot. Negative means unchanged."`
	Monitoring string `flag:"monitoring" metavar:"keep|yes|no" help:"Turn the monitoring stack on or off."`
}

const ARG_APP_NAME = "APP_NAME"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Update a registered App.",
		Flag{
			Replicas:   -1,
			Monitoring: "keep",
		},
		flarc.Args{
			{
				Name: ARG_APP_NAME, Required: true,
				Help: "Name of the App to be updated.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Update a registered App.

Only the passed flags change; everything else is left as it is.
The change applies to the slot standing up on the NEXT rollout,
not to pods already running.

To scale an App,

    {{ .Command }} --replicas 6 ping-api

To turn monitoring on,

    {{ .Command }} --monitoring yes ping-api
`),
	)
}

func Task() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		env string,
		client trest.TugClient,
		cl flarc.Commandline[Flag],
		params []any,
	) error {
		args := cl.Args()
		name := args[ARG_APP_NAME][0]

		flags := cl.Flags()
		change := apps.Change{}

		if 0 <= flags.Replicas {
			replicas := flags.Replicas
			change.Replicas = &replicas
		}

		switch flags.Monitoring {
		case "keep":
			// unchanged.
		case "yes", "true":
			monitoring := true
			change.Monitoring = &monitoring
		case "no", "false":
			monitoring := false
			change.Monitoring = &monitoring
		default:
			return fmt.Errorf(
				`%w: incorrect --monitoring: it should be "keep", "yes" or "no"`,
				flarc.ErrUsage,
			)
		}

		if change.Equal(apps.Change{}) {
			return fmt.Errorf("%w: nothing to update", flarc.ErrUsage)
		}

		updated, err := client.UpdateApp(ctx, name, change)
		if err != nil {
			return err
		}

		logger.Printf("app %s is updated.\n", updated.Name)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(updated); err != nil {
			return err
		}

		return nil
	}
}
