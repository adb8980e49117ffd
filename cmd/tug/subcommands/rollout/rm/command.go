package rm

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
		"Invalidate a waiting Rollout.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_ROLLOUT_ID, Required: true,
				Help: "Id of the Rollout to be invalidated.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Invalidate a Rollout before it starts.

Only a Rollout in "waiting" status can be invalidated. Once the orchestrator
has picked a Rollout up, use "{{ .Command }} abort" instead.
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

		rollout, err := client.InvalidateRollout(ctx, rolloutId)
		if err != nil {
			return err
		}

		logger.Printf("rollout %s is invalidated.\n", rollout.RolloutId)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollout); err != nil {
			return err
		}

		return nil
	}
}
