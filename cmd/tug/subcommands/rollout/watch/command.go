package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cheggaaa/pb/v3"
	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/youta-t/flarc"
)

const ARG_ROLLOUT_ID = "ROLLOUT_ID"

type Flag struct {
	Interval time.Duration `flag:"interval" metavar:"duration" help:"polling interval."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Watch a Rollout until it reaches a terminal status.",
		Flag{
			Interval: 3 * time.Second,
		},
		flarc.Args{
			{
				Name: ARG_ROLLOUT_ID, Required: true,
				Help: "Id of the Rollout to be watched.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Watch a Rollout.

{{ .Command }} polls the Rollout and draws its progress until the Rollout
becomes done, rolledback, failed or invalidated. When it ends, the Rollout
is printed in JSON.

The exit status is non-zero unless the Rollout ends in "done".
`),
	)
}

// progress milestones of a healthy rollout, in order.
var steps = []domain.RolloutStatus{
	domain.Waiting,
	domain.Provisioning,
	domain.Validating,
	domain.Shifting,
	domain.Draining,
	domain.Done,
}

func stepOf(status string) int64 {
	for i, s := range steps {
		if status == s.String() {
			return int64(i)
		}
	}
	// aborting and terminal failures sit outside the happy path.
	return int64(len(steps) - 1)
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
		rolloutId := args[ARG_ROLLOUT_ID][0]

		interval := cl.Flags().Interval
		if interval <= 0 {
			return fmt.Errorf("%w: --interval should be positive", flarc.ErrUsage)
		}

		rollout, err := client.GetRollout(ctx, rolloutId)
		if err != nil {
			return err
		}

		bar := pb.New64(int64(len(steps) - 1))
		bar.SetWriter(cl.Stderr())
		if err := bar.Err(); err != nil {
			return err
		}

		bar.Start()
		for {
			bar.SetCurrent(stepOf(rollout.Status))
			bar.Set("prefix", rollout.Status+": ")

			status, err := domain.AsRolloutStatus(rollout.Status)
			if err != nil {
				return err
			}
			if status.IsTerminal() {
				break
			}

			select {
			case <-ctx.Done():
				bar.Finish()
				return ctx.Err()
			case <-time.NewTimer(interval).C:
			}

			rollout, err = client.GetRollout(ctx, rolloutId)
			if err != nil {
				bar.Finish()
				return err
			}
		}
		bar.Finish()

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rollout); err != nil {
			return err
		}

		if rollout.Status != domain.Done.String() {
			return fmt.Errorf(
				"rollout %s ended in %s: %s",
				rollout.RolloutId, rollout.Status, rollout.Cause,
			)
		}
		logger.Printf("rollout %s is done.\n", rollout.RolloutId)
		return nil
	}
}
