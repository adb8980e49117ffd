package retry

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
		"Retry a finished Rollout as a new Rollout.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ROLLOUT_ID, Required: true,
				Help: "Id of the Rollout to be retried.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Retry a Rollout.

A new Rollout is created for the same Release, targeting the idle slot
as of now. The original Rollout is left as it is.

Only Rollouts in a terminal status (done, rolledback or failed) can be retried.
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

		rollout, err := client.RetryRollout(ctx, rolloutId)
		if err != nil {
			return err
		}

		logger.Printf(
			"rollout %s is retried as rollout %s.\n",
			rolloutId, rollout.RolloutId,
		)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollout); err != nil {
			return err
		}

		return nil
	}
}
