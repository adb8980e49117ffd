package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/taskflow-dev/tugboat/pkg/configs/hook"
)

// Web is a webhook for before/after hooks.
type Web[T any] struct {
	// BeforeURL is a list of URLs to call before processing the value T.
	//
	// The value T is sent as a JSON payload for each URL.
	//
	// If and only if all of the URLs return a 2xx status code, the hook proceeds.
	// Otherwise, the hook fails.
	BeforeURL []*url.URL

	// AfterURL is a list of URLs to call after processing the value T.
	AfterURL []*url.URL

	// Timeout per request. Zero means no timeout.
	Timeout time.Duration

	// Authorize returns the Authorization header value for a payload.
	//
	// When nil, requests are sent unsigned.
	Authorize func(T) (string, error)
}

// Build wires a lifecycle webhook config into a Web hook.
func Build[T any](cfg config.WebHook, authorize func(T) (string, error)) Web[T] {
	return Web[T]{
		BeforeURL: cfg.Before,
		AfterURL:  cfg.After,
		Timeout:   cfg.Timeout,
		Authorize: authorize,
	}
}

func (w Web[T]) sendRequest(url string, auth string, payload io.Reader) error {
	req, err := http.NewRequest(http.MethodPost, url, payload)
	if err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	client := &http.Client{Timeout: w.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	defer resp.Body.Close()

	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		return nil
	}

	ctype := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ctype, "text/") && !(strings.HasPrefix(ctype, "application/") && strings.Contains(ctype, "json")) {
		return fmt.Errorf(
			"%w (%s %d, Content-Type: %s)",
			ErrHookFailed, url, resp.StatusCode, ctype,
		)
	}

	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf(
		"%w (%s %d, Content-Type: %s): %s",
		ErrHookFailed, url, resp.StatusCode, ctype, string(body),
	)
}

func (w Web[T]) hook(value T, urls []*url.URL) error {
	if len(urls) == 0 {
		return nil
	}

	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}

	auth := ""
	if w.Authorize != nil {
		auth, err = w.Authorize(value)
		if err != nil {
			return errors.Join(err, ErrHookFailed)
		}
	}

	for _, url := range urls {
		if err := w.sendRequest(url.String(), auth, bytes.NewBuffer(buf)); err != nil {
			return err
		}
	}

	return nil
}

func (w Web[T]) Before(value T) error {
	return w.hook(value, w.BeforeURL)
}

func (w Web[T]) After(value T) error {
	return w.hook(value, w.AfterURL)
}
