package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

func Load(filename string) (Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type Config struct {
	// Fired on each rollout status transition.
	Lifecycle WebHook `yaml:"lifecycle-hooks,omitempty"`
}

type WebHook struct {
	Before []*url.URL
	After  []*url.URL

	// Per-request timeout. Defaults to 30s.
	Timeout time.Duration
}

func (wh *WebHook) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Before  []string `yaml:"before"`
		After   []string `yaml:"after"`
		Timeout string   `yaml:"timeout"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	wh.Before = make([]*url.URL, len(raw.Before))
	for i, u := range raw.Before {
		parsed, err := url.Parse(u)
		if err != nil {
			return err
		}
		wh.Before[i] = parsed
	}

	wh.After = make([]*url.URL, len(raw.After))
	for i, u := range raw.After {
		parsed, err := url.Parse(u)
		if err != nil {
			return err
		}
		wh.After[i] = parsed
	}

	if raw.Timeout == "" {
		wh.Timeout = 30 * time.Second
		return nil
	}
	timeout, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("lifecycle-hooks timeout: %w", err)
	}
	wh.Timeout = timeout
	return nil
}
