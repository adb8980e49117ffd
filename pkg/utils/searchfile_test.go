package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/taskflow-dev/tugboat/pkg/utils"
)

func TestSearchFilePathtoUpward(t *testing.T) {
	t.Run("when the file is in the start directory, it finds it", func(t *testing.T) {
		tmp := t.TempDir()
		path := filepath.Join(tmp, ".tugprofile")
		if f, err := os.Create(path); err != nil {
			t.Fatal(err)
		} else {
			f.Close()
		}

		ret, err := utils.SearchFilePathtoUpward(tmp, ".tugprofile")
		if err != nil {
			t.Fatal(err)
		}
		if *ret != path {
			t.Errorf("unmatch file path: (actual, expected) = (%s, %s)", *ret, path)
		}
	})

	t.Run("when the file is in an ancestor directory, it finds it", func(t *testing.T) {
		tmp := t.TempDir()
		nested := filepath.Join(tmp, "projects", "ping-api")
		if err := os.MkdirAll(nested, 0777); err != nil {
			t.Fatal(err)
		}

		path := filepath.Join(tmp, ".tugprofile")
		if f, err := os.Create(path); err != nil {
			t.Fatal(err)
		} else {
			f.Close()
		}

		ret, err := utils.SearchFilePathtoUpward(nested, ".tugprofile")
		if err != nil {
			t.Fatal(err)
		}
		if *ret != path {
			t.Errorf("unmatch file path: (actual, expected) = (%s, %s)", *ret, path)
		}
	})

	t.Run("when no ancestor has the file, it returns ErrSearchFile", func(t *testing.T) {
		tmp := t.TempDir()

		_, err := utils.SearchFilePathtoUpward(tmp, "no-such-file-anywhere.yaml")
		if !errors.Is(err, utils.ErrSearchFile) {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}
