package handlers

import (
	"errors"
	"net/http"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/labstack/echo/v4"
	apireleases "github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	apierr "github.com/taskflow-dev/tugboat/pkg/api-types-binding/errors"
	bindreleases "github.com/taskflow-dev/tugboat/pkg/api-types-binding/releases"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	domerr "github.com/taskflow-dev/tugboat/pkg/domain/errors"
	releasedb "github.com/taskflow-dev/tugboat/pkg/domain/release/db"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
	kstrings "github.com/taskflow-dev/tugboat/pkg/utils/strings"
)

func ReleaseRegisterHandler(dbRelease releasedb.ReleaseInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		spec := apireleases.Spec{}
		if err := c.Bind(&spec); err != nil {
			return apierr.BadRequest("can not understand the request body", err)
		}

		release, err := releaseFromSpec(spec)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		releaseId, err := dbRelease.New(ctx, release)
		if err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NewErrorAdvice(
					http.StatusNotFound,
					"app not found",
					"register the app first",
				)
			}
			return apierr.InternalServerError(err)
		}

		registered, err := dbRelease.Get(ctx, []string{releaseId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		rel, ok := registered[releaseId]
		if !ok {
			return apierr.InternalServerError(errors.New("registered release is gone"))
		}

		return c.JSON(http.StatusOK, bindreleases.ComposeDetail(rel))
	}
}

func FindReleaseHandler(dbRelease releasedb.ReleaseInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query := domain.ReleaseFindQuery{
			AppName: kstrings.SplitIfNotEmpty(c.QueryParam("app"), ","),
		}
		if since := c.QueryParam("since"); since != "" {
			t, err := rfctime.ParseRFC3339DateTime(since)
			if err != nil {
				return apierr.BadRequest(`"since" should be a RFC3339 date-time format`, err)
			}
			_t := t.Time()
			query.Since = &_t
		}

		ctx := c.Request().Context()
		releaseIds, err := dbRelease.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		releases, err := dbRelease.Get(ctx, releaseIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apireleases.Detail, 0, len(releases))
		for _, releaseId := range releaseIds {
			if rel, ok := releases[releaseId]; ok {
				resp = append(resp, bindreleases.ComposeDetail(rel))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetReleaseHandler(dbRelease releasedb.ReleaseInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		releaseId := c.Param("releaseId")

		ctx := c.Request().Context()
		releases, err := dbRelease.Get(ctx, []string{releaseId})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		rel, ok := releases[releaseId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, bindreleases.ComposeDetail(rel))
	}
}

func releaseFromSpec(spec apireleases.Spec) (domain.Release, error) {
	if spec.App == "" {
		return domain.Release{}, apierr.BadRequest(`"app" is required`, nil)
	}

	if spec.Image == "" {
		return domain.Release{}, apierr.BadRequest(`"image" is required`, nil)
	}
	if _, err := name.ParseReference(spec.Image); err != nil {
		return domain.Release{}, apierr.BadRequest(
			`"image" should be a container image reference, like "registry.example.com/app:1.2.3"`,
			err,
		)
	}

	strategy := domain.BlueGreen
	if spec.Strategy != "" {
		s, err := domain.AsStrategy(spec.Strategy)
		if err != nil {
			return domain.Release{}, apierr.BadRequest(
				`"strategy" should be one of "blue-green", "canary" or "rolling"`,
				err,
			)
		}
		strategy = s
	}

	var env domain.Env
	if spec.Env != "" {
		e, err := domain.AsEnv(spec.Env)
		if err != nil {
			return domain.Release{}, apierr.BadRequest(
				`"env" should be one of "production", "staging" or "development"`,
				err,
			)
		}
		env = e
	}

	var plan []domain.CanaryPhase
	if 0 < len(spec.CanaryPlan) {
		if strategy != domain.Canary {
			return domain.Release{}, apierr.BadRequest(
				`"canaryPlan" is for the "canary" strategy only`, nil,
			)
		}
		for _, p := range spec.CanaryPlan {
			plan = append(plan, domain.CanaryPhase{
				Percent: p.Percent,
				Window:  p.Window.Duration(),
			})
		}
		if err := domain.ValidateCanaryPlan(plan); err != nil {
			return domain.Release{}, apierr.BadRequest(
				`"canaryPlan" percents should increase strictly and end at 100`,
				err,
			)
		}
	}

	var gates []domain.GateKind
	for _, g := range spec.Gates {
		gate, err := domain.AsGateKind(g)
		if err != nil {
			return domain.Release{}, apierr.BadRequest(
				`unknown gate in "gates"`, err,
			)
		}
		gates = append(gates, gate)
	}

	if spec.Timeout < 0 {
		return domain.Release{}, apierr.BadRequest(`"timeout" should not be negative`, nil)
	}

	return domain.Release{
		AppName:    spec.App,
		Env:        env,
		Image:      spec.Image,
		Config:     spec.Config,
		Strategy:   strategy,
		CanaryPlan: plan,
		Gates:      gates,
		Timeout:    spec.Timeout.Duration(),
	}, nil
}
