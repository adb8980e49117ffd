package common_test

import (
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/taskflow-dev/tugboat/pkg/utils/try"
)

func TestFlags(t *testing.T) {
	t.Run("when .tugprofile is found, its first line is the default profile", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(
			path.Join(root, ".tugprofile"), []byte("my-cluster\n"), 0600,
		); err != nil {
			t.Fatal(err)
		}
		nested := path.Join(root, "a", "b")
		if err := os.MkdirAll(nested, 0700); err != nil {
			t.Fatal(err)
		}

		cf := try.To(common.Flags(
			nested,
			common.WithHome("/home/fake"),
			common.WithEnv("staging"),
		)).OrFatal(t)

		if cf.Profile != "my-cluster" {
			t.Errorf("default profile unmatch: %s", cf.Profile)
		}
		if cf.ProfileStore != path.Join("/home/fake", ".tug", "profile") {
			t.Errorf("default profile store unmatch: %s", cf.ProfileStore)
		}
		if cf.Env != "staging" {
			t.Errorf("default env unmatch: %s", cf.Env)
		}
	})

	t.Run("when no .tugprofile is found, the default profile is the abs path", func(t *testing.T) {
		root := t.TempDir()

		cf := try.To(common.Flags(
			root, common.WithHome("/home/fake"), common.WithEnv(""),
		)).OrFatal(t)

		abs := try.To(filepath.Abs(root)).OrFatal(t)
		if cf.Profile != abs {
			t.Errorf("default profile unmatch: (actual, expected) = (%s, %s)", cf.Profile, abs)
		}
		if cf.Env != "" {
			t.Errorf("default env should be empty: %s", cf.Env)
		}
	})
}
