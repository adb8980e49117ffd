package find

import (
	"context"
	"encoding/json"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
)

type Flag struct {
	Name []string `flag:"name" alias:"n" metavar:"NAME..." help:"Name of Apps to be found. Repeatable."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Display Apps that satisfy all specified conditions.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Display Apps that satisfy all specified conditions.

If no condition is specified, all Apps are displayed.

Finding Apps in the current environment ("--env", default: TUG_ENV):

	{{ .Command }}

Finding Apps by name:

	{{ .Command }} --name ping-api --name metrics-api
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
		flags := cl.Flags()

		query := trest.FindAppParameter{Name: flags.Name}
		if env != "" {
			query.Env = []string{env}
		}

		apps, err := client.FindApps(ctx, query)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(apps); err != nil {
			return err
		}

		return nil
	}
}
