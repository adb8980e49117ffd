package template

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	trest "github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	"github.com/taskflow-dev/tugboat/pkg/images/analyzer"
	y "github.com/taskflow-dev/tugboat/pkg/utils/yamler"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

type Option struct {
	fromScratch func(context.Context, *log.Logger, string) (apps.Spec, error)
	fromImage   func(context.Context, *log.Logger, namedReader, string, string) (apps.Spec, error)
}

func WithTemplateMaker(
	fromScratch func(context.Context, *log.Logger, string) (apps.Spec, error),
	fromImage func(context.Context, *log.Logger, namedReader, string, string) (apps.Spec, error),
) func(*Option) *Option {
	return func(cmd *Option) *Option {
		cmd.fromScratch = fromScratch
		cmd.fromImage = fromImage
		return cmd
	}
}

type Flag struct {
	Scratch bool   `flag:"scratch" help:"Generate an app file without reading any image."`
	Input   string `flag:"input" alias:"i" metavar:"path/to/image.tar" help:"Tar file containing image (for example: output of 'docker save') to be used for the App."`
}

const (
	ARG_IMAGE_TAG = "image:tag"
)

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{
		fromScratch: FromScratch(),
		fromImage:   FromImage(analyzer.Analyze),
	}
	for _, opt := range options {
		option = opt(option)
	}
	return flarc.NewCommand(
		"Generate a new app file from a container image.",

		Flag{Input: "-", Scratch: false},
		flarc.Args{
			{
				Name: ARG_IMAGE_TAG, Required: false,
				Help: fmt.Sprintf(`
Specify the image tag the App is named after.
This is optional when the image has just one tag.

If --scratch is given, %s is prohibited.`,
					ARG_IMAGE_TAG,
				),
			},
		},
		common.NewTask(Task(option.fromScratch, option.fromImage)),
		flarc.WithDescription(`
Generate an app file from "docker save".

	docker save image:tag | {{ .Command }} > app.yaml

Generate an app file from a container image file.

	docker save image:tag > image.tar
	{{ .Command }} -i image.tar > app.yaml

You may need to specify image:tag explicitly when the image has multiple tags, like below:

	{{ .Command }} -i image-with-multiple-tag.tar image:tag > app.yaml
`),
	)
}

func Task(
	fromScratch func(context.Context, *log.Logger, string) (apps.Spec, error),
	fromImage func(context.Context, *log.Logger, namedReader, string, string) (apps.Spec, error),
) common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		env string,
		client trest.TugClient,
		cl flarc.Commandline[Flag],
		params []any,
	) error {
		flags := cl.Flags()
		args := cl.Args()

		var spec apps.Spec
		if flags.Scratch {
			if l := len(args[ARG_IMAGE_TAG]); 0 < l {
				return fmt.Errorf(
					"%w: image:tag and --scratch are exclusive", flarc.ErrUsage,
				)
			}

			s, err := fromScratch(ctx, logger, env)
			if err != nil {
				return fmt.Errorf("can not generate app file: %w", err)
			}
			spec = s
		} else {
			imageTag := ""
			if 0 < len(args[ARG_IMAGE_TAG]) {
				imageTag = args[ARG_IMAGE_TAG][0]
			}

			var source namedReader = _namedReader{name: "STDIN", Reader: cl.Stdin()}
			if flags.Input != "-" {
				f, err := os.Open(flags.Input)
				if err != nil {
					return fmt.Errorf(
						"cannot open input file: %s: %w", flags.Input, err,
					)
				}
				defer f.Close()
				source = f
			}

			s, err := fromImage(ctx, logger, source, imageTag, env)
			if err != nil {
				return fmt.Errorf("failed to generate app file: %w", err)
			}
			spec = s
		}

		os.Stdout.WriteString("\n")
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		enc.SetIndent(2)
		if err := enc.Encode(specWithDocument(spec)); err != nil {
			return fmt.Errorf("cannot write app file: %w", err)
		}
		os.Stdout.WriteString("\n")
		logger.Println("# App file is generated. modify it as you like.")
		return nil
	}
}

func FromScratch() func(context.Context, *log.Logger, string) (apps.Spec, error) {
	return func(ctx context.Context, l *log.Logger, env string) (apps.Spec, error) {
		return apps.Spec{
			Name:     "my-app",
			Env:      env,
			Replicas: 2,
			Resources: &apps.Resources{
				CPURequest:    "100m",
				MemoryRequest: "128Mi",
				CPULimit:      "500m",
				MemoryLimit:   "256Mi",
			},
		}, nil
	}
}

func FromImage(
	analyze func(context.Context, io.Reader) ([]analyzer.TaggedConfig, error),
) func(context.Context, *log.Logger, namedReader, string, string) (apps.Spec, error) {
	return func(
		ctx context.Context,
		l *log.Logger,
		source namedReader,
		tag string,
		env string,
	) (apps.Spec, error) {

		l.Printf(`...analyzing image from "%s"`, source.Name())
		foundConfigs, err := analyze(ctx, source)
		if err != nil {
			return apps.Spec{}, err
		}

		var cfg analyzer.TaggedConfig
		if tag == "" {
			if l := len(foundConfigs); 1 < l {
				return apps.Spec{}, fmt.Errorf("multiple images found, specify the image tag")
			} else if l == 0 {
				return apps.Spec{}, fmt.Errorf("no image found")
			}
			cfg = foundConfigs[0]
		} else {
			found := false
		CONFIGS:
			for _, c := range foundConfigs {
				for _, t := range c.Tags {
					if t == tag {
						cfg = c
						found = true
						break CONFIGS
					}
				}
			}
			if !found {
				return apps.Spec{}, fmt.Errorf("specified image tag '%s' is not found", tag)
			}
		}

		if tag == "" && 0 < len(cfg.Tags) {
			tag = cfg.Tags[0]
		}

		name := "my-app"
		if repo, _, ok := cutImageTag(tag); ok && repo != "" {
			name = repo
			if i := strings.LastIndexByte(repo, '/'); 0 <= i {
				name = repo[i+1:]
			}
		}

		spec := apps.Spec{
			Name:     name,
			Env:      env,
			Replicas: 2,
			Resources: &apps.Resources{
				CPURequest:    "100m",
				MemoryRequest: "128Mi",
				CPULimit:      "500m",
				MemoryLimit:   "256Mi",
			},
		}

		// a serving port suggests the app should be reachable from outside.
		if 0 < len(cfg.Config.ExposedPorts) {
			spec.Ingress = &apps.Ingress{
				Host: name + ".example.com",
				TLS:  true,
			}
		}

		return spec, nil
	}
}

func cutImageTag(imageName string) (repo string, tag string, ok bool) {
	if i := strings.LastIndexByte(imageName, ':'); 0 < i {
		return imageName[:i], imageName[i+1:], true
	}
	return imageName, "", false
}

type namedReader interface {
	Name() string
	io.Reader
}

type _namedReader struct {
	name string
	io.Reader
}

func (r _namedReader) Name() string {
	return r.name
}

type specWithDocument apps.Spec

func (s specWithDocument) MarshalYAML() (interface{}, error) {
	entries := []y.MapEntry{
		y.Entry(
			y.Text("name", y.WithHeadComment(`
name:
  Name of the App. Unique within an environment.
`)),
			y.Text(s.Name, y.WithStyle(yaml.DoubleQuotedStyle)),
		),
		y.Entry(
			y.Text("env", y.WithHeadComment(`
env:
  Environment this App belongs to, e.g. staging or production.
`)),
			y.Text(s.Env, y.WithStyle(yaml.DoubleQuotedStyle)),
		),
		y.Entry(
			y.Text("replicas", y.WithHeadComment(`
replicas:
  How many pods each slot runs when it receives traffic.
`)),
			y.Number(s.Replicas),
		),
	}

	if s.Resources != nil {
		entries = append(entries, y.Entry(
			y.Text("resources", y.WithHeadComment(`
resources (optional):
  Compute requests/limits per container, in Kubernetes quantity expressions.
`)),
			y.Map(
				y.Entry(y.Text("cpuRequest"), y.Text(s.Resources.CPURequest)),
				y.Entry(y.Text("memoryRequest"), y.Text(s.Resources.MemoryRequest)),
				y.Entry(y.Text("cpuLimit"), y.Text(s.Resources.CPULimit)),
				y.Entry(y.Text("memoryLimit"), y.Text(s.Resources.MemoryLimit)),
			),
		))
	}

	if s.Ingress != nil {
		entries = append(entries, y.Entry(
			y.Text("ingress", y.WithHeadComment(`
ingress (optional):
  Expose the App outside the cluster at this host.
`)),
			y.Map(
				y.Entry(y.Text("host"), y.Text(s.Ingress.Host, y.WithStyle(yaml.DoubleQuotedStyle))),
				y.Entry(y.Text("tls"), y.Bool(s.Ingress.TLS)),
			),
		))
	}

	entries = append(entries, y.Entry(
		y.Text("monitoring", y.WithHeadComment(`
monitoring (optional; default = false):
  Set true to provision a per-app monitoring stack alongside the slots.
`)),
		y.Bool(s.Monitoring),
	))

	return y.Map(entries...), nil
}
