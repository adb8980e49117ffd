package new

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

const ARG_RELEASE_FILE = "RELEASE_FILE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Cut a new Release from a release file.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_RELEASE_FILE, Required: true,
				Help: "Path to the release file. Pass - to read from stdin.",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Cut a new Release.

A Release pins everything a rollout needs: the image, the runtime config,
the strategy and its validation gates. Cutting a Release does not touch
the cluster; start it with "tug rollout start".

To cut from a file,

    {{ .Command }} ./release.yaml

When the release file declares no environment, the one given by "--env"
(default: TUG_ENV) applies.
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
		source := args[ARG_RELEASE_FILE][0]

		var buf []byte
		if source == "-" {
			b, err := io.ReadAll(cl.Stdin())
			if err != nil {
				return fmt.Errorf("fail to read release file from stdin: %w", err)
			}
			buf = b
		} else {
			b, err := os.ReadFile(source)
			if err != nil {
				return fmt.Errorf("fail to read release file: %w", err)
			}
			buf = b
		}

		spec := new(releases.Spec)
		if err := yaml.Unmarshal(buf, spec); err != nil {
			return fmt.Errorf("fail to parse release file: %w", err)
		}
		if spec.Env == "" {
			spec.Env = env
		}

		rel, err := client.RegisterRelease(ctx, *spec)
		if err != nil {
			return fmt.Errorf("failed to cut release: %w", err)
		}

		logger.Printf("release %s (%s -> %s) is cut.\n", rel.ReleaseId, rel.App, rel.Image)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(rel); err != nil {
			return err
		}

		return nil
	}
}
