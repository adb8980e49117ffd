package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
)

func (c *client) StartRollout(ctx context.Context, releaseId string) (rollouts.Detail, error) {
	b, err := json.Marshal(rollouts.Spec{ReleaseId: releaseId})
	if err != nil {
		return rollouts.Detail{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("rollouts"), bytes.NewBuffer(b),
	)
	if err != nil {
		return rollouts.Detail{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return rollouts.Detail{}, err
	}
	defer resp.Body.Close()

	var meta rollouts.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: fmt.Sprintf("releaseId:%v cannot be rolled out", releaseId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return rollouts.Detail{}, err
	}
	return meta, nil
}

func (c *client) GetRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("rollouts", rolloutId), nil,
	)
	if err != nil {
		return rollouts.Detail{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return rollouts.Detail{}, err
	}
	defer resp.Body.Close()

	var meta rollouts.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: fmt.Sprintf("rolloutId:%v is not found", rolloutId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return rollouts.Detail{}, err
	}
	return meta, nil
}

func (c *client) FindRollouts(ctx context.Context, query FindRolloutParameter) ([]rollouts.Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("rollouts"), nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	paramMap := map[string][]string{
		"app":     query.App,
		"release": query.ReleaseId,
		"status":  query.Status,
	}
	if query.Since != nil {
		paramMap["since"] = []string{query.Since.Format(rfctime.RFC3339DateTimeFormatZ)}
	}
	if query.Until != nil {
		paramMap["until"] = []string{query.Until.Format(rfctime.RFC3339DateTimeFormatZ)}
	}
	for key, value := range paramMap {
		if len(value) > 0 {
			q.Add(key, strings.Join(value, ","))
		}
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	metas := make([]rollouts.Detail, 0, 5)
	if err := unmarshalJsonResponse(
		resp, &metas,
		MessageFor{
			Status4xx: fmt.Sprintf("[BUG] client is not compatible with the server (status code = %d)", resp.StatusCode),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return nil, err
	}

	return metas, nil
}

func (c *client) AbortRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	return c.putRollout(ctx, rolloutId, "abort",
		fmt.Sprintf("rolloutId:%v cannot be aborted", rolloutId),
	)
}

func (c *client) RetryRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	return c.putRollout(ctx, rolloutId, "retry",
		fmt.Sprintf("rolloutId:%v cannot be retried", rolloutId),
	)
}

func (c *client) putRollout(ctx context.Context, rolloutId string, verb string, message4xx string) (rollouts.Detail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, c.apipath("rollouts", rolloutId, verb), nil,
	)
	if err != nil {
		return rollouts.Detail{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return rollouts.Detail{}, err
	}
	defer resp.Body.Close()

	var meta rollouts.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: message4xx,
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return rollouts.Detail{}, err
	}
	return meta, nil
}

func (c *client) InvalidateRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete, c.apipath("rollouts", rolloutId), nil,
	)
	if err != nil {
		return rollouts.Detail{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return rollouts.Detail{}, err
	}
	defer resp.Body.Close()

	var meta rollouts.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: fmt.Sprintf("rolloutId:%v cannot be invalidated", rolloutId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return rollouts.Detail{}, err
	}
	return meta, nil
}

func (c *client) GetGateReports(ctx context.Context, rolloutId string) ([]rollouts.GateReport, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("rollouts", rolloutId, "gates"), nil,
	)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reports := make([]rollouts.GateReport, 0, 5)
	if err := unmarshalJsonResponse(
		resp, &reports,
		MessageFor{
			Status4xx: fmt.Sprintf("rolloutId:%v is not found", rolloutId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return nil, err
	}

	return reports, nil
}
