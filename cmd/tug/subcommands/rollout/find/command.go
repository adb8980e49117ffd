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
	App     []string `flag:"app" alias:"a" metavar:"APP..." help:"App whose Rollouts are to be found. Repeatable."`
	Release []string `flag:"release" alias:"r" metavar:"RELEASE_ID..." help:"Release whose Rollouts are to be found. Repeatable."`
	Status  []string `flag:"status" alias:"s" metavar:"waiting|provisioning|..." help:"Status of Rollouts to be found. Repeatable."`
	Since   string   `flag:"since" metavar:"YYYY-MM-DDThh:mm:ssZ" help:"Rollouts updated at this time or later."`
	Until   string   `flag:"until" metavar:"YYYY-MM-DDThh:mm:ssZ" help:"Rollouts updated at this time or earlier."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Display Rollouts that satisfy all specified conditions.",
		Flag{},
		flarc.Args{},
		common.NewTask(Task()),
		flarc.WithDescription(`
Display Rollouts that satisfy all specified conditions.

If no condition is specified, all Rollouts are displayed.

Finding Rollouts in flight:

	{{ .Command }} --status waiting --status provisioning --status validating --status shifting --status draining

Finding Rollouts of an App which went wrong:

	{{ .Command }} --app ping-api --status rolledback --status failed
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

		query := trest.FindRolloutParameter{
			App:       flags.App,
			ReleaseId: flags.Release,
			Status:    flags.Status,
		}
		if flags.Since != "" {
			since, err := rfctime.ParseLooseRFC3339(flags.Since)
			if err != nil {
				return fmt.Errorf("%w: incorrect --since: %s", flarc.ErrUsage, err)
			}
			t := since.Time()
			query.Since = &t
		}
		if flags.Until != "" {
			until, err := rfctime.ParseLooseRFC3339(flags.Until)
			if err != nil {
				return fmt.Errorf("%w: incorrect --until: %s", flarc.ErrUsage, err)
			}
			t := until.Time()
			query.Until = &t
		}

		rollouts, err := client.FindRollouts(ctx, query)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollouts); err != nil {
			return err
		}

		return nil
	}
}
