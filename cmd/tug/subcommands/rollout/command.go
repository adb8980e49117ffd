package rollout

import (
	rollout_abort "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/abort"
	rollout_find "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/find"
	rollout_gates "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/gates"
	rollout_retry "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/retry"
	rollout_rm "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/rm"
	rollout_show "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/show"
	rollout_start "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/start"
	rollout_watch "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout/watch"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	start, err := rollout_start.New()
	if err != nil {
		return nil, err
	}

	find, err := rollout_find.New()
	if err != nil {
		return nil, err
	}

	show, err := rollout_show.New()
	if err != nil {
		return nil, err
	}

	gates, err := rollout_gates.New()
	if err != nil {
		return nil, err
	}

	abort, err := rollout_abort.New()
	if err != nil {
		return nil, err
	}

	retry, err := rollout_retry.New()
	if err != nil {
		return nil, err
	}

	rm, err := rollout_rm.New()
	if err != nil {
		return nil, err
	}

	watch, err := rollout_watch.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Manage Tugboat Rollouts.",
		struct{}{},
		flarc.WithSubcommand("start", start),
		flarc.WithSubcommand("find", find),
		flarc.WithSubcommand("show", show),
		flarc.WithSubcommand("gates", gates),
		flarc.WithSubcommand("abort", abort),
		flarc.WithSubcommand("retry", retry),
		flarc.WithSubcommand("rm", rm),
		flarc.WithSubcommand("watch", watch),
	)
}
