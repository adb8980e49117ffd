package register

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

const ARG_APP_FILE = "APP_FILE"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Register a new App from an app file.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_APP_FILE, Required: true,
				Help: "Path to the app file. Pass - to read from stdin. If you need one, try `tug app template`",
			},
		},
		common.NewTask(Task()),
		flarc.WithDescription(`
Register a new App.

An App is the unit of delivery: tugboat holds two slots (blue and green)
for each registered App, and rollouts move traffic between them.

To register from a file,

    {{ .Command }} ./app.yaml

To register from stdin,

    cat app.yaml | {{ .Command }} -

When the app file declares no environment, the one given by "--env"
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
		source := args[ARG_APP_FILE][0]

		var buf []byte
		if source == "-" {
			b, err := io.ReadAll(cl.Stdin())
			if err != nil {
				return fmt.Errorf("fail to read app file from stdin: %w", err)
			}
			buf = b
		} else {
			b, err := os.ReadFile(source)
			if err != nil {
				return fmt.Errorf("fail to read app file: %w", err)
			}
			buf = b
		}

		spec := new(apps.Spec)
		if err := yaml.Unmarshal(buf, spec); err != nil {
			return fmt.Errorf("fail to parse app file: %w", err)
		}
		if spec.Env == "" {
			spec.Env = env
		}

		registered, err := client.RegisterApp(ctx, *spec)
		if err != nil {
			return fmt.Errorf("failed to register app: %w", err)
		}

		logger.Printf("app %s (env %s) is registered.\n", registered.Name, registered.Env)

		enc := json.NewEncoder(cl.Stdout())
		enc.SetIndent("", "    ")
		if err := enc.Encode(registered); err != nil {
			return err
		}

		return nil
	}
}
