package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
)

func (c *client) RegisterApp(ctx context.Context, spec apps.Spec) (apps.Detail, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return apps.Detail{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apipath("apps"), bytes.NewBuffer(b),
	)
	if err != nil {
		return apps.Detail{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apps.Detail{}, err
	}
	defer resp.Body.Close()

	var meta apps.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: "invalid request",
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apps.Detail{}, err
	}
	return meta, nil
}

func (c *client) GetApp(ctx context.Context, name string, env string) (apps.Detail, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.apipath("apps", name), nil,
	)
	if err != nil {
		return apps.Detail{}, err
	}
	if env != "" {
		q := req.URL.Query()
		q.Add("env", env)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apps.Detail{}, err
	}
	defer resp.Body.Close()

	var meta apps.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: fmt.Sprintf("app:%v is not found", name),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apps.Detail{}, err
	}
	return meta, nil
}

func (c *client) FindApps(ctx context.Context, query FindAppParameter) ([]apps.Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("apps"), nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	paramMap := map[string][]string{
		"name": query.Name,
		"env":  query.Env,
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

	metas := make([]apps.Detail, 0, 5)
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

func (c *client) UpdateApp(ctx context.Context, name string, change apps.Change) (apps.Detail, error) {
	b, err := json.Marshal(change)
	if err != nil {
		return apps.Detail{}, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, c.apipath("apps", name), bytes.NewBuffer(b),
	)
	if err != nil {
		return apps.Detail{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return apps.Detail{}, err
	}
	defer resp.Body.Close()

	var meta apps.Detail
	if err := unmarshalJsonResponse(
		resp, &meta,
		MessageFor{
			Status4xx: fmt.Sprintf("app:%v cannot be updated", name),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return apps.Detail{}, err
	}
	return meta, nil
}

func (c *client) DeleteApp(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete, c.apipath("apps", name), nil,
	)
	if err != nil {
		return err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := unmarshalResponseDiscardingPayload(
		resp,
		MessageFor{
			Status4xx: fmt.Sprintf("app:%v cannot be deleted", name),
			Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
		},
	); err != nil {
		return err
	}

	return nil
}
