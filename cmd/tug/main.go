package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	subapp "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/app"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	subinit "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/init"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/logger"
	subrelease "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/release"
	subrollout "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/rollout"
	subver "github.com/taskflow-dev/tugboat/cmd/tug/subcommands/version"
	"github.com/taskflow-dev/tugboat/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	app := try.To(subapp.New()).OrFatal(logger)
	release := try.To(subrelease.New()).OrFatal(logger)
	rollout := try.To(subrollout.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	tug := try.To(
		flarc.NewCommandGroup(
			"Tugboat Commandline interface",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("app", app),
			flarc.WithSubcommand("release", release),
			flarc.WithSubcommand("rollout", rollout),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, tug, flarc.WithHelp(true)))
}
