package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/taskflow-dev/tugboat/cmd/loops/hook"
	"github.com/taskflow-dev/tugboat/cmd/loops/recurring"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/expiry"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/finalizing"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/gc"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager/bluegreen"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager/canary"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager/rolling"
	apirollouts "github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation"
	"github.com/taskflow-dev/tugboat/pkg/loop"
)

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// Wrapper for monitoring loop tasks
//
//	Log the start and end of each time a task is executed. Essentially, it executes a task.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	// counter for execution of the task
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		// func() capture the 'counter' variable
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X: ", counter)

		// log at the end of the task
		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s): %s\n with value = %#v",
				counter, time.Since(timestamp), next, ret,
			)
		}()

		// execute the task specified by the argument
		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	// Which loop to run
	Type domain.LoopType

	// Policy for the looping
	Policy recurring.Policy

	// Lifecycle hooks framing rollout status changes
	Hooks hook.Hook[apirollouts.Detail]
}

// StartLoop runs the loop the manifest names until its policy or context ends it.
func StartLoop(
	ctx context.Context,
	logger *log.Logger,
	tug tugboat.Tugboat,
	client cluster.K8sClient,
	manifest LoopManifest,
) error {
	switch manifest.Type {
	case domain.Orchestration:
		return StartOrchestrationLoop(ctx, logger, tug, client, manifest)
	case domain.Finalizing:
		return StartFinalizingLoop(ctx, logger, tug, manifest)
	case domain.Expiry:
		return StartExpiryLoop(ctx, logger, tug, manifest)
	case domain.GarbageCollection:
		return StartGarbageCollectionLoop(ctx, logger, tug, manifest)
	}
	return fmt.Errorf("unknown loop type: %s", manifest.Type)
}

func StartOrchestrationLoop(
	ctx context.Context,
	logger *log.Logger,
	tug tugboat.Tugboat,
	client cluster.K8sClient,
	manifest LoopManifest,
) error {
	conf := tug.Config()
	engine := validation.New(
		tug.Rollout().Database(),
		validation.StandardGates(client, conf)...,
	)

	// one manager per release strategy
	managers := map[domain.Strategy]manager.Manager{
		domain.BlueGreen: bluegreen.New(
			tug.App().Database(), tug.Rollout().K8s(), tug.Monitoring().K8s(),
			engine, conf,
		),
		domain.Canary: canary.New(
			tug.App().Database(), tug.Rollout().Database(),
			tug.Rollout().K8s(), tug.Monitoring().K8s(),
			engine, conf,
		),
		domain.Rolling: rolling.New(
			tug.Rollout().K8s(), tug.Monitoring().K8s(), engine,
		),
	}

	l := byLogger(logger, Copied(), WithPrefix("[orchestration loop]"))
	_, err := loop.Start(
		ctx, orchestration.Seed(),
		monitor(
			l,
			orchestration.Task(
				l,
				tug.Rollout().Database(),
				tug.App().Database(),
				managers,
				manifest.Hooks,
			).Applied(manifest.Policy),
		),
	)
	return err
}

func StartFinalizingLoop(
	ctx context.Context,
	logger *log.Logger,
	tug tugboat.Tugboat,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[finalizing loop]"))
	_, err := loop.Start(
		ctx, finalizing.Seed(),
		monitor(
			l,
			finalizing.Task(
				l,
				tug.Rollout().Database(),
				tug.App().Database(),
				tug.Garbage().Database(),
				tug.Rollout().K8s(),
				manifest.Hooks,
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

func StartExpiryLoop(
	ctx context.Context,
	logger *log.Logger,
	tug tugboat.Tugboat,
	manifest LoopManifest,
) error {
	_, err := loop.Start(
		ctx, expiry.Seed(),
		monitor(
			byLogger(logger, Copied(), WithPrefix("[expiry loop]")),
			expiry.Task(tug.Rollout().Database()).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

func StartGarbageCollectionLoop(
	ctx context.Context,
	logger *log.Logger,
	tug tugboat.Tugboat,
	manifest LoopManifest,
) error {
	_, err := loop.Start(
		ctx, gc.Seed(),
		monitor(
			byLogger(logger, Copied(), WithPrefix("[gc loop]")),
			gc.Task(
				tug.Garbage().K8s(),
				tug.Garbage().Database(),
			).Applied(manifest.Policy),
		),
	)
	return err
}
