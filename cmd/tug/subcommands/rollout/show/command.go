package show

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
		"Display a Rollout with given id.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ROLLOUT_ID, Required: true,
				Help: "Id of the Rollout to be shown.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Display a Rollout: its status, target slot, status history and gate reports.
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

		rollout, err := client.GetRollout(ctx, rolloutId)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollout); err != nil {
			return err
		}

		return nil
	}
}
