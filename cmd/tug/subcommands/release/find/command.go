package find

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
	"github.com/youta-t/flarc"
)

type Flag struct {
	App   []string `flag:"app" alias:"a" metavar:"APP..." help:"App whose Releases are to be found. Repeatable."`
	Since string   `flag:"since" metavar:"YYYY-MM-DDThh:mm:ssZ" help:"Releases cut at this time or later."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Display Releases that satisfy all specified conditions.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Display Releases that satisfy all specified conditions.

If no condition is specified, all Releases are displayed.

Finding Releases of an App:

	{{ .Command }} --app ping-api

Finding Releases cut since a point in time:

	{{ .Command }} --since 2024-06-01T00:00:00Z
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

		query := trest.FindReleaseParameter{App: flags.App}
		if flags.Since != "" {
			since, err := rfctime.ParseLooseRFC3339(flags.Since)
			if err != nil {
				return fmt.Errorf("%w: incorrect --since: %s", flarc.ErrUsage, err)
			}
			t := since.Time()
			query.Since = &t
		}

		rels, err := client.FindReleases(ctx, query)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rels); err != nil {
			return err
		}

		return nil
	}
}
