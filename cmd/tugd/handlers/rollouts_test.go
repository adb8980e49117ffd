package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	handlers "github.com/taskflow-dev/tugboat/cmd/tugd/handlers"
	httptestutil "github.com/taskflow-dev/tugboat/internal/testutils/http"
	apirollouts "github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	domerr "github.com/taskflow-dev/tugboat/pkg/domain/errors"
	mockdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db/mock"
)

func dummyRollout(id string, status domain.RolloutStatus) domain.Rollout {
	return domain.Rollout{
		RolloutBody: domain.RolloutBody{
			Id:          id,
			ReleaseId:   "rel-1",
			AppName:     "ping-api",
			Env:         domain.Production,
			Status:      status,
			TargetColor: domain.Green,
			Phase:       -1,
			UpdatedAt:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		},
		Release: dummyRelease("rel-1"),
		History: []domain.StatusChange{
			{Status: domain.Waiting, At: time.Date(2025, 4, 1, 11, 0, 0, 0, time.UTC)},
			{Status: status, At: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)},
		},
		Reports: []domain.GateReport{
			{
				Kind: domain.GateEndpoints, Outcome: domain.GatePassed,
				Summary:    "2 ready addresses",
				ObservedAt: time.Date(2025, 4, 1, 11, 30, 0, 0, time.UTC),
			},
		},
	}
}

func TestRolloutStartHandler(t *testing.T) {
	t.Run("it accepts a rollout and answers it waiting", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.New = func(ctx context.Context, releaseId string) (string, error) {
			if releaseId != "rel-1" {
				t.Errorf("releaseId: (actual, expected) = (%s, rel-1)", releaseId)
			}
			return "rol-1", nil
		}
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			return map[string]domain.Rollout{"rol-1": dummyRollout("rol-1", domain.Waiting)}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/rollouts", strings.NewReader(`{"releaseId": "rel-1"}`),
			httptestutil.ContentType("application/json"),
		)

		if err := handlers.RolloutStartHandler(mdb)(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		actual := apirollouts.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a json of rollouts.Detail: %s", err)
		}
		if actual.RolloutId != "rol-1" || actual.Status != "waiting" {
			t.Errorf("unexpected rollout: %+v", actual)
		}
		if actual.Release.ReleaseId != "rel-1" {
			t.Errorf("unexpected release: %+v", actual.Release)
		}
	})

	for name, testcase := range map[string]struct {
		body       string
		new        func(context.Context, string) (string, error)
		statusCode int
	}{
		"it responds 400 without releaseId": {
			body:       `{}`,
			statusCode: http.StatusBadRequest,
		},
		"it responds 404 when the release is missing": {
			body: `{"releaseId": "no-such-release"}`,
			new: func(context.Context, string) (string, error) {
				return "", domerr.ErrMissing
			},
			statusCode: http.StatusNotFound,
		},
		"it responds 409 when the app has an active rollout": {
			body: `{"releaseId": "rel-1"}`,
			new: func(context.Context, string) (string, error) {
				return "", domerr.ErrConflict
			},
			statusCode: http.StatusConflict,
		},
	} {
		t.Run(name, func(t *testing.T) {
			mdb := mockdb.NewRolloutInterface()
			mdb.Impl.New = testcase.new

			e := echo.New()
			c, _ := httptestutil.Post(
				e, "/api/rollouts", strings.NewReader(testcase.body),
				httptestutil.ContentType("application/json"),
			)

			err := handlers.RolloutStartHandler(mdb)(c)
			httperr := new(echo.HTTPError)
			if !errors.As(err, &httperr) {
				t.Fatalf("error is not echo.HTTPError: %+v", err)
			}
			if httperr.Code != testcase.statusCode {
				t.Errorf("status code: (actual, expected) = (%d, %d)", httperr.Code, testcase.statusCode)
			}
		})
	}
}

func TestFindRolloutHandler(t *testing.T) {
	t.Run("it parses query params", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.Find = func(ctx context.Context, q domain.RolloutFindQuery) ([]string, error) {
			return []string{}, nil
		}
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			return map[string]domain.Rollout{}, nil
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/rollouts?app=ping-api&status=waiting,aborting")

		if err := handlers.FindRolloutHandler(mdb)(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		query := mdb.Calls.Find[0]
		want := []domain.RolloutStatus{domain.Waiting, domain.Aborting}
		if len(query.Status) != 2 || query.Status[0] != want[0] || query.Status[1] != want[1] {
			t.Errorf("unexpected status query: %+v", query.Status)
		}
	})

	t.Run("it responds 400 for an unknown status", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/rollouts?status=limbo")

		err := handlers.FindRolloutHandler(mdb)(c)
		httperr := new(echo.HTTPError)
		if !errors.As(err, &httperr) {
			t.Fatalf("error is not echo.HTTPError: %+v", err)
		}
		if httperr.Code != http.StatusBadRequest {
			t.Errorf("status code: (actual, expected) = (%d, 400)", httperr.Code)
		}
	})
}

func TestAbortRolloutHandler(t *testing.T) {
	t.Run("it turns the rollout aborting", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.SetStatus = func(ctx context.Context, id string, status domain.RolloutStatus, note string) error {
			return nil
		}
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			return map[string]domain.Rollout{"rol-1": dummyRollout("rol-1", domain.Aborting)}, nil
		}

		e := echo.New()
		c, _ := httptestutil.Put(e, "/api/rollouts/rol-1/abort", nil)
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		if err := handlers.AbortRolloutHandler(mdb)(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		if len(mdb.Calls.SetStatus) != 1 {
			t.Fatalf("SetStatus is called %d times", len(mdb.Calls.SetStatus))
		}
		call := mdb.Calls.SetStatus[0]
		if call.RolloutId != "rol-1" || call.NewStatus != domain.Aborting {
			t.Errorf("unexpected SetStatus: %+v", call)
		}
	})

	t.Run("it responds 409 for a terminal rollout", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.SetStatus = func(ctx context.Context, id string, status domain.RolloutStatus, note string) error {
			return domain.NewErrInvalidStatusTransition(domain.Done, domain.Aborting)
		}

		e := echo.New()
		c, _ := httptestutil.Put(e, "/api/rollouts/rol-1/abort", nil)
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		err := handlers.AbortRolloutHandler(mdb)(c)
		httperr := new(echo.HTTPError)
		if !errors.As(err, &httperr) {
			t.Fatalf("error is not echo.HTTPError: %+v", err)
		}
		if httperr.Code != http.StatusConflict {
			t.Errorf("status code: (actual, expected) = (%d, 409)", httperr.Code)
		}
	})
}

func TestRetryRolloutHandler(t *testing.T) {
	t.Run("it re-queues a rolledback rollout under a new id", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			found := map[string]domain.Rollout{
				"rol-1": dummyRollout("rol-1", domain.RolledBack),
				"rol-2": dummyRollout("rol-2", domain.Waiting),
			}
			resp := map[string]domain.Rollout{}
			for _, id := range ids {
				if r, ok := found[id]; ok {
					resp[id] = r
				}
			}
			return resp, nil
		}
		mdb.Impl.New = func(ctx context.Context, releaseId string) (string, error) {
			if releaseId != "rel-1" {
				t.Errorf("releaseId: (actual, expected) = (%s, rel-1)", releaseId)
			}
			return "rol-2", nil
		}

		e := echo.New()
		c, respRec := httptestutil.Put(e, "/api/rollouts/rol-1/retry", nil)
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		if err := handlers.RetryRolloutHandler(mdb)(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		actual := apirollouts.Detail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a json of rollouts.Detail: %s", err)
		}
		if actual.RolloutId != "rol-2" || actual.Status != "waiting" {
			t.Errorf("unexpected rollout: %+v", actual)
		}
	})

	t.Run("it responds 409 when the rollout is not retryable", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			return map[string]domain.Rollout{"rol-1": dummyRollout("rol-1", domain.Done)}, nil
		}

		e := echo.New()
		c, _ := httptestutil.Put(e, "/api/rollouts/rol-1/retry", nil)
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		err := handlers.RetryRolloutHandler(mdb)(c)
		httperr := new(echo.HTTPError)
		if !errors.As(err, &httperr) {
			t.Fatalf("error is not echo.HTTPError: %+v", err)
		}
		if httperr.Code != http.StatusConflict {
			t.Errorf("status code: (actual, expected) = (%d, 409)", httperr.Code)
		}
	})
}

func TestInvalidateRolloutHandler(t *testing.T) {
	t.Run("it invalidates a waiting rollout", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.SetStatus = func(ctx context.Context, id string, status domain.RolloutStatus, note string) error {
			if status != domain.Invalidated {
				t.Errorf("status: (actual, expected) = (%s, invalidated)", status)
			}
			return nil
		}
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			return map[string]domain.Rollout{"rol-1": dummyRollout("rol-1", domain.Invalidated)}, nil
		}

		e := echo.New()
		c, _ := httptestutil.Delete(e, "/api/rollouts/rol-1")
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		if err := handlers.InvalidateRolloutHandler(mdb)(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
	})

	t.Run("it responds 409 once the rollout left waiting", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.SetStatus = func(ctx context.Context, id string, status domain.RolloutStatus, note string) error {
			return domain.NewErrInvalidStatusTransition(domain.Provisioning, domain.Invalidated)
		}

		e := echo.New()
		c, _ := httptestutil.Delete(e, "/api/rollouts/rol-1")
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		err := handlers.InvalidateRolloutHandler(mdb)(c)
		httperr := new(echo.HTTPError)
		if !errors.As(err, &httperr) {
			t.Fatalf("error is not echo.HTTPError: %+v", err)
		}
		if httperr.Code != http.StatusConflict {
			t.Errorf("status code: (actual, expected) = (%d, 409)", httperr.Code)
		}
	})
}

func TestGetGateReportsHandler(t *testing.T) {
	t.Run("it returns the gate reports only", func(t *testing.T) {
		mdb := mockdb.NewRolloutInterface()
		mdb.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Rollout, error) {
			return map[string]domain.Rollout{"rol-1": dummyRollout("rol-1", domain.Validating)}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/rollouts/rol-1/gates")
		c.SetParamNames("rolloutId")
		c.SetParamValues("rol-1")

		if err := handlers.GetGateReportsHandler(mdb)(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		actual := []apirollouts.GateReport{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not a json of []rollouts.GateReport: %s", err)
		}
		if len(actual) != 1 || actual[0].Kind != "endpoints" || actual[0].Outcome != "passed" {
			t.Errorf("unexpected reports: %+v", actual)
		}
	})
}
