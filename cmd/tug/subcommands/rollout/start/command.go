package start

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_RELEASE_ID = "RELEASE_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Start a Rollout of a Release.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_RELEASE_ID, Required: true,
				Help: "Id of the Release to be rolled out.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Start a Rollout.

The new Rollout is queued as "waiting" and picked up by the orchestrator.
An App runs at most one Rollout at a time; starting a second one fails
until the active one finishes or is aborted.

Watch the progress with

    tug rollout watch ROLLOUT_ID
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
		releaseId := args[ARG_RELEASE_ID][0]

		rollout, err := client.StartRollout(ctx, releaseId)
		if err != nil {
			return fmt.Errorf("failed to start rollout: %w", err)
		}

		logger.Printf(
			"rollout %s is started: %s moves to the %s slot.\n",
			rollout.RolloutId, rollout.App, rollout.TargetColor,
		)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollout); err != nil {
			return err
		}

		return nil
	}
}
