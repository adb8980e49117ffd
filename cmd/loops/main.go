package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/taskflow-dev/tugboat/cmd/loops/hook"
	"github.com/taskflow-dev/tugboat/cmd/loops/provider/keyprovider"
	"github.com/taskflow-dev/tugboat/cmd/loops/recurring"
	apirollouts "github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	configs "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	cfg_hook "github.com/taskflow-dev/tugboat/pkg/configs/hook"
	connk8s "github.com/taskflow-dev/tugboat/pkg/conn/k8s"
	keychain "github.com/taskflow-dev/tugboat/pkg/domain/keychain/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/utils/args"
	"github.com/taskflow-dev/tugboat/pkg/utils/filewatch"
	"github.com/taskflow-dev/tugboat/pkg/utils/try"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

// hook tokens outlive a request by little; keep them short.
const hookTokenLifetime = 5 * time.Minute

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("TUGBOAT_BACKEND_CONFIG"), "path to config file",
	)
	phooks := flag.String(
		"hooks", os.Getenv("TUGBOAT_HOOK_CONFIG"), "path to hook config file",
	)
	//-- which loop type to run
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type")
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	// parse command line flags
	flag.Parse()

	{
		// watch config & hooks
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig, *phooks)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(logger)
	clientset := connk8s.ConnectToK8s()

	tug := try.To(tugboat.New(ctx, conf.Cluster(), clientset)).OrFatal(logger)

	hooks := cfg_hook.Config{}
	if hookPath := *phooks; hookPath != "" {
		hooks = try.To(cfg_hook.Load(hookPath)).OrFatal(logger)
	}

	// hook requests carry a JWS so receivers can tell them from impostors.
	keys := keyprovider.New(
		conf.Cluster().Keychains().SignKeyForHooks().Name(),
		tug.Keychain().Database(),
		tug.Keychain().K8s().GetKeyChain,
	)
	authorize := func(d apirollouts.Detail) (string, error) {
		exp := time.Now().Add(hookTokenLifetime)
		kid, k, err := keys.Provide(
			ctx, keychain.WithAlg("HS256"), keychain.WithExpAfter(exp),
		)
		if err != nil {
			return "", err
		}
		token, err := keychain.NewJWS(kid, k, jwt.RegisteredClaims{
			Issuer:    "tugboat",
			Subject:   d.RolloutId,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		if err != nil {
			return "", err
		}
		return "Bearer " + token, nil
	}

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), policy.Value().String(),
	)

	err := StartLoop(
		ctx, logger, tug, cluster.WrapK8sClient(clientset),
		LoopManifest{
			Type:   loopType.Value(),
			Policy: recurring.UntilError(policy.Value()),
			Hooks:  hook.Build(hooks.Lifecycle, authorize),
		},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}

	if ctx.Err() != nil {
		logger.Fatal(err)
	}
}
