package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apirollouts "github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	apierr "github.com/taskflow-dev/tugboat/pkg/api-types-binding/errors"
	bindrollouts "github.com/taskflow-dev/tugboat/pkg/api-types-binding/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	domerr "github.com/taskflow-dev/tugboat/pkg/domain/errors"
	rolloutdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
	kstrings "github.com/taskflow-dev/tugboat/pkg/utils/strings"
)

func RolloutStartHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		spec := apirollouts.Spec{}
		if err := c.Bind(&spec); err != nil {
			return apierr.BadRequest("can not understand the request body", err)
		}
		if spec.ReleaseId == "" {
			return apierr.BadRequest(`"releaseId" is required`, nil)
		}

		ctx := c.Request().Context()
		rolloutId, err := dbRollout.New(ctx, spec.ReleaseId)
		if err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NewErrorAdvice(
					http.StatusNotFound,
					"release not found",
					"cut a release first",
				)
			}
			if errors.Is(err, domerr.ErrConflict) {
				return apierr.Conflict(
					"app has a rollout not finished yet",
					apierr.WithAdvice("abort or wait for the active rollout"),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		return getAndComposeRollout(c, dbRollout, rolloutId)
	}
}

func FindRolloutHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query := domain.RolloutFindQuery{
			AppName:   kstrings.SplitIfNotEmpty(c.QueryParam("app"), ","),
			ReleaseId: kstrings.SplitIfNotEmpty(c.QueryParam("release"), ","),
		}
		for _, s := range kstrings.SplitIfNotEmpty(c.QueryParam("status"), ",") {
			status, err := domain.AsRolloutStatus(s)
			if err != nil {
				return apierr.BadRequest(`unknown rollout status in "status"`, err)
			}
			query.Status = append(query.Status, status)
		}
		if since := c.QueryParam("since"); since != "" {
			t, err := rfctime.ParseRFC3339DateTime(since)
			if err != nil {
				return apierr.BadRequest(`"since" should be a RFC3339 date-time format`, err)
			}
			_t := t.Time()
			query.UpdatedSince = &_t
		}
		if until := c.QueryParam("until"); until != "" {
			t, err := rfctime.ParseRFC3339DateTime(until)
			if err != nil {
				return apierr.BadRequest(`"until" should be a RFC3339 date-time format`, err)
			}
			_t := t.Time()
			query.UpdatedUntil = &_t
		}

		ctx := c.Request().Context()
		rolloutIds, err := dbRollout.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		rollouts, err := dbRollout.Get(ctx, rolloutIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apirollouts.Detail, 0, len(rollouts))
		for _, rolloutId := range rolloutIds {
			if r, ok := rollouts[rolloutId]; ok {
				resp = append(resp, bindrollouts.ComposeDetail(r))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetRolloutHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		return getAndComposeRollout(c, dbRollout, c.Param("rolloutId"))
	}
}

func AbortRolloutHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		rolloutId := c.Param("rolloutId")

		ctx := c.Request().Context()
		err := dbRollout.SetStatus(ctx, rolloutId, domain.Aborting, "aborted by operator")
		if err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, domain.ErrInvalidStatusTransition) {
				return apierr.Conflict(
					"rollout can not be aborted",
					apierr.WithAdvice("only a waiting or in-progress rollout can be aborted"),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		return getAndComposeRollout(c, dbRollout, rolloutId)
	}
}

func RetryRolloutHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		rolloutId := c.Param("rolloutId")

		ctx := c.Request().Context()
		rollouts, err := dbRollout.Get(ctx, []string{rolloutId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		rollout, ok := rollouts[rolloutId]
		if !ok {
			return apierr.NotFound()
		}

		switch rollout.Status {
		case domain.RolledBack, domain.Failed:
			// retryable.
		default:
			return apierr.Conflict(
				"rollout is not retryable",
				apierr.WithAdvice(`only a "rolledback" or "failed" rollout can be retried`),
			)
		}

		newId, err := dbRollout.New(ctx, rollout.ReleaseId)
		if err != nil {
			if errors.Is(err, domerr.ErrConflict) {
				return apierr.Conflict(
					"app has a rollout not finished yet",
					apierr.WithAdvice("abort or wait for the active rollout"),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		return getAndComposeRollout(c, dbRollout, newId)
	}
}

func InvalidateRolloutHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		rolloutId := c.Param("rolloutId")

		ctx := c.Request().Context()
		err := dbRollout.SetStatus(ctx, rolloutId, domain.Invalidated, "invalidated by operator")
		if err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, domain.ErrInvalidStatusTransition) {
				return apierr.Conflict(
					"rollout can not be invalidated",
					apierr.WithAdvice("only a waiting rollout can be invalidated"),
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		return getAndComposeRollout(c, dbRollout, rolloutId)
	}
}

func GetGateReportsHandler(dbRollout rolloutdb.RolloutInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		rolloutId := c.Param("rolloutId")

		ctx := c.Request().Context()
		rollouts, err := dbRollout.Get(ctx, []string{rolloutId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		rollout, ok := rollouts[rolloutId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(
			http.StatusOK,
			slices.Map(rollout.Reports, bindrollouts.ComposeGateReport),
		)
	}
}

func getAndComposeRollout(
	c echo.Context, dbRollout rolloutdb.RolloutInterface, rolloutId string,
) error {
	ctx := c.Request().Context()
	rollouts, err := dbRollout.Get(ctx, []string{rolloutId})
	if err != nil {
		return apierr.InternalServerError(err)
	}
	rollout, ok := rollouts[rolloutId]
	if !ok {
		return apierr.NotFound()
	}
	return c.JSON(http.StatusOK, bindrollouts.ComposeDetail(rollout))
}
