// Package duration provides a time.Duration carried over JSON
// as a Go duration expression, e.g. "60s" or "1m30s".
package duration

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

type Duration time.Duration

func New(d time.Duration) Duration {
	return Duration(d)
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) Equal(other Duration) bool {
	return d == other
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var expr string
	if err := json.Unmarshal(b, &expr); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(expr)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(expr)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
