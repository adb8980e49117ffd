package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
)

func (c *client) RegisterRelease(ctx context.Context, spec releases.Spec) (releases.Detail, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return releases.Detail{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("releases"), bytes.NewBuffer(b),
	)
	if err != nil {
		return releases.Detail{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return releases.Detail{}, err
	}
	defer resp.Body.Close()

	var meta releases.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: "invalid request",
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return releases.Detail{}, err
	}
	return meta, nil
}

func (c *client) GetRelease(ctx context.Context, releaseId string) (releases.Detail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("releases", releaseId), nil,
	)
	if err != nil {
		return releases.Detail{}, err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return releases.Detail{}, err
	}
	defer resp.Body.Close()

	var meta releases.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: fmt.Sprintf("releaseId:%v is not found", releaseId),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return releases.Detail{}, err
	}
	return meta, nil
}

func (c *client) FindReleases(ctx context.Context, query FindReleaseParameter) ([]releases.Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("releases"), nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	if len(query.App) > 0 {
		q.Add("app", strings.Join(query.App, ","))
	}
	if query.Since != nil {
		q.Add("since", query.Since.Format(rfctime.RFC3339DateTimeFormatZ))
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	metas := make([]releases.Detail, 0, 5)
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
