package show

import (
	"context"
	"encoding/json"
	"log"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_RELEASE_ID = "RELEASE_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Display a Release with given id.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_RELEASE_ID, Required: true,
				Help: "Id of the Release to be shown.",
			},
		},
		common.NewTask(Task()),
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

		rel, err := client.GetRelease(ctx, releaseId)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rel); err != nil {
			return err
		}

		return nil
	}
}
