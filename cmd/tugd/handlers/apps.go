package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apiapps "github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	bindapps "github.com/taskflow-dev/tugboat/pkg/api-types-binding/apps"
	apierr "github.com/taskflow-dev/tugboat/pkg/api-types-binding/errors"
	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	appdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	domerr "github.com/taskflow-dev/tugboat/pkg/domain/errors"
	monitoring "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
	kstrings "github.com/taskflow-dev/tugboat/pkg/utils/strings"
)

func AppRegisterHandler(dbApp appdb.AppInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		spec := apiapps.Spec{}
		if err := c.Bind(&spec); err != nil {
			return apierr.BadRequest("can not understand the request body", err)
		}

		app, err := appFromSpec(spec)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		registered, err := dbApp.Register(ctx, app)
		if err != nil {
			if errors.Is(err, domerr.ErrConflict) {
				return apierr.Conflict(
					"app already exists",
					apierr.WithAdvice("pick another name, or update the existing app"),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, bindapps.ComposeDetail(registered))
	}
}

func FindAppHandler(dbApp appdb.AppInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query := domain.AppFindQuery{
			Name: kstrings.SplitIfNotEmpty(c.QueryParam("name"), ","),
		}
		for _, e := range kstrings.SplitIfNotEmpty(c.QueryParam("env"), ",") {
			env, err := domain.AsEnv(e)
			if err != nil {
				return apierr.BadRequest(
					`"env" should be one of "production", "staging" or "development"`,
					err,
				)
			}
			query.Env = append(query.Env, env)
		}

		ctx := c.Request().Context()
		names, err := dbApp.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		apps, err := dbApp.Get(ctx, names)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apiapps.Detail, 0, len(apps))
		for _, name := range names {
			if app, ok := apps[name]; ok {
				resp = append(resp, bindapps.ComposeDetail(app))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetAppHandler(dbApp appdb.AppInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		name := c.Param("name")

		ctx := c.Request().Context()
		apps, err := dbApp.Get(ctx, []string{name})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		app, ok := apps[name]
		if !ok {
			return apierr.NotFound()
		}

		// env is an attribute of the app, not part of its identity.
		// Asking for another env than the app's is a miss.
		if env := c.QueryParam("env"); env != "" && env != string(app.Env) {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, bindapps.ComposeDetail(app))
	}
}

func UpdateAppHandler(dbApp appdb.AppInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		name := c.Param("name")

		change := apiapps.Change{}
		if err := c.Bind(&change); err != nil {
			return apierr.BadRequest("can not understand the request body", err)
		}

		ctx := c.Request().Context()
		apps, err := dbApp.Get(ctx, []string{name})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		app, ok := apps[name]
		if !ok {
			return apierr.NotFound()
		}

		if change.Replicas != nil {
			if *change.Replicas <= 0 {
				return apierr.BadRequest(`"replicas" should be positive`, nil)
			}
			app.Replicas = *change.Replicas
		}
		if change.Resources != nil {
			app.Resources = domain.Resources{
				CPURequest:    change.Resources.CPURequest,
				MemoryRequest: change.Resources.MemoryRequest,
				CPULimit:      change.Resources.CPULimit,
				MemoryLimit:   change.Resources.MemoryLimit,
			}
		}
		if change.Ingress != nil {
			if change.Ingress.Host == "" {
				app.Ingress = nil
			} else {
				app.Ingress = &domain.Ingress{
					Host: change.Ingress.Host,
					TLS:  change.Ingress.TLS,
				}
			}
		}
		if change.Monitoring != nil {
			app.Monitoring = *change.Monitoring
		}

		updated, err := dbApp.UpdateSpec(ctx, app)
		if err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, bindapps.ComposeDetail(updated))
	}
}

func DeleteAppHandler(dbApp appdb.AppInterface, conf *bconf.TugClusterConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		name := c.Param("name")

		ctx := c.Request().Context()
		apps, err := dbApp.Get(ctx, []string{name})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		app, ok := apps[name]
		if !ok {
			return apierr.NotFound()
		}

		garbage := slot.GarbageOfApp(app)
		if app.Monitoring {
			garbage = append(garbage, monitoring.GarbageOf(app, conf.MonitoringNamespace())...)
		}

		if err := dbApp.Delete(ctx, name, garbage); err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, domerr.ErrConflict) {
				return apierr.Conflict(
					"app has a rollout in progress",
					apierr.WithAdvice("abort the rollout, or wait for it to finish"),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func appFromSpec(spec apiapps.Spec) (domain.App, error) {
	if spec.Name == "" {
		return domain.App{}, apierr.BadRequest(`"name" is required`, nil)
	}

	env := domain.Development
	if spec.Env != "" {
		e, err := domain.AsEnv(spec.Env)
		if err != nil {
			return domain.App{}, apierr.BadRequest(
				`"env" should be one of "production", "staging" or "development"`,
				err,
			)
		}
		env = e
	}

	if spec.Replicas < 0 {
		return domain.App{}, apierr.BadRequest(`"replicas" should not be negative`, nil)
	}
	replicas := spec.Replicas
	if replicas == 0 {
		replicas = 2
	}

	namespace := spec.Namespace
	if namespace == "" {
		namespace = spec.Name
	}

	resources := domain.DefaultResources()
	if r := spec.Resources; r != nil {
		resources = domain.Resources{
			CPURequest:    r.CPURequest,
			MemoryRequest: r.MemoryRequest,
			CPULimit:      r.CPULimit,
			MemoryLimit:   r.MemoryLimit,
		}
	}

	var ingress *domain.Ingress
	if i := spec.Ingress; i != nil {
		if i.Host == "" {
			return domain.App{}, apierr.BadRequest(`"ingress.host" is required when ingress is declared`, nil)
		}
		ingress = &domain.Ingress{Host: i.Host, TLS: i.TLS}
	}

	var storage *domain.Storage
	if s := spec.Storage; s != nil {
		if s.Size == "" {
			return domain.App{}, apierr.BadRequest(`"storage.size" is required when storage is declared`, nil)
		}
		storage = &domain.Storage{Size: s.Size}
	}

	return domain.App{
		Name:       spec.Name,
		Env:        env,
		Namespace:  namespace,
		Replicas:   replicas,
		Resources:  resources,
		Ingress:    ingress,
		Storage:    storage,
		Monitoring: spec.Monitoring,
	}, nil
}
