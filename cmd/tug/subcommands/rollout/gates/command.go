package gates

import (
	"context"
	"encoding/json"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_ROLLOUT_ID = "ROLLOUT_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Display validation gate reports of a Rollout.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ROLLOUT_ID, Required: true,
				Help: "Id of the Rollout whose gate reports are to be shown.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Display validation gate reports of a Rollout, oldest first.

A report records the outcome of one gate run: passed, failed or skipped,
with the observed samples and the threshold which applied to them.
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
		rolloutId := args[ARG_ROLLOUT_ID][0]

		reports, err := client.GetGateReports(ctx, rolloutId)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(reports); err != nil {
			return err
		}

		return nil
	}
}
