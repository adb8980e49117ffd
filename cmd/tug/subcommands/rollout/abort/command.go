package abort

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
		"Abort a Rollout and roll its App back.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ROLLOUT_ID, Required: true,
				Help: "Id of the Rollout to be aborted.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Abort a Rollout.

The Rollout turns "aborting" and the finalizer restores the previously
active slot. Only a waiting or in-progress Rollout can be aborted.
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

		rollout, err := client.AbortRollout(ctx, rolloutId)
		if err != nil {
			return err
		}

		logger.Printf("rollout %s is aborting.\n", rollout.RolloutId)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollout); err != nil {
			return err
		}

		return nil
	}
}
