package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	tugdb "github.com/taskflow-dev/tugboat/pkg/domain/tugboat/db"
	tugpg "github.com/taskflow-dev/tugboat/pkg/domain/tugboat/db/postgres"
	"github.com/taskflow-dev/tugboat/pkg/utils/echoutil"
	"github.com/taskflow-dev/tugboat/pkg/utils/filewatch"

	"github.com/taskflow-dev/tugboat/cmd/tugd/handlers"
)

func main() {
	configPath := flag.String("config", "", "tugboat config path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	conf, err := bconf.LoadBackendConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// restart (by the container runtime) when the config changes on disk.
	ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), *configPath)
	if err != nil {
		log.Fatalf("can not watch configration: %s", err)
	}
	defer cancel()
	context.AfterFunc(ctx, func() {
		log.Println("config file is updated. quit to restart server.")
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.Printf("error on shutdown by config update: %s", err)
		}
	})

	db, err := getDBAccesor(ctx, conf.Cluster().Database())
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()

	// the schema is upgraded here, once, under an advisory lock.
	// Concurrent tugd replicas race for the lock and agree on the result.
	if err := db.Schema().Upgrade(ctx); err != nil {
		log.Fatalf("can not upgrade database schema: %s", err)
	}

	api := func(s string) string { return "/api/" + s }

	{
		e.POST(api("apps"), handlers.AppRegisterHandler(db.App()))
		e.GET(api("apps"), handlers.FindAppHandler(db.App()))
		e.GET(api("apps/:name/"), handlers.GetAppHandler(db.App()))
		e.PUT(api("apps/:name/"), handlers.UpdateAppHandler(db.App()))
		e.DELETE(api("apps/:name/"), handlers.DeleteAppHandler(db.App(), conf.Cluster()))
	}

	{
		e.POST(api("releases"), handlers.ReleaseRegisterHandler(db.Release()))
		e.GET(api("releases"), handlers.FindReleaseHandler(db.Release()))
		e.GET(api("releases/:releaseId/"), handlers.GetReleaseHandler(db.Release()))
	}

	{
		e.POST(api("rollouts"), handlers.RolloutStartHandler(db.Rollout()))
		e.GET(api("rollouts"), handlers.FindRolloutHandler(db.Rollout()))
		e.GET(api("rollouts/:rolloutId/"), handlers.GetRolloutHandler(db.Rollout()))
		e.PUT(api("rollouts/:rolloutId/abort"), handlers.AbortRolloutHandler(db.Rollout()))
		e.PUT(api("rollouts/:rolloutId/retry"), handlers.RetryRolloutHandler(db.Rollout()))
		e.DELETE(api("rollouts/:rolloutId/"), handlers.InvalidateRolloutHandler(db.Rollout()))
		e.GET(api("rollouts/:rolloutId/gates"), handlers.GetGateReportsHandler(db.Rollout()))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	port := fmt.Sprintf(":%d", conf.Port())
	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		e.Logger.Fatal(e.StartTLS(port, cert, key))
	} else {
		e.Logger.Fatal(e.Start(port))
	}
}

func getDBAccesor(ctx context.Context, dburi string) (tugdb.TugDatabase, error) {
	return tugpg.New(ctx, dburi)
}
