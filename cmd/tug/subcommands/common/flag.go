package common

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/taskflow-dev/tugboat/pkg/utils"
)

type CommonFlags struct {
	Profile      string `flag:"profile" help:"tugprofile name to use"`
	ProfileStore string `flag:"profile-store" help:"path to tugprofile store file"`
	Env          string `flag:"env" help:"environment to work with, e.g. staging or production"`
}

type commonFlagDetection struct {
	home string
	env  string
}

type CommonFlagDetectionOption func(*commonFlagDetection) *commonFlagDetection

func WithHome(home string) CommonFlagDetectionOption {
	return func(opt *commonFlagDetection) *commonFlagDetection {
		opt.home = home
		return opt
	}
}

func WithEnv(env string) CommonFlagDetectionOption {
	return func(opt *commonFlagDetection) *commonFlagDetection {
		opt.env = env
		return opt
	}
}

// Flags detects default values of CommonFlags.
//
// The default profile name is taken from the first ".tugprofile" file found
// in `from` or its ancestors, and falls back to the absolute path of `from`.
// The default environment comes from the TUG_ENV environment variable.
func Flags(from string, opt ...CommonFlagDetectionOption) (CommonFlags, error) {
	detparam := commonFlagDetection{
		home: "",
		env:  os.Getenv("TUG_ENV"),
	}
	for _, o := range opt {
		detparam = *o(&detparam)
	}

	home := detparam.home
	if home == "" {
		_home, err := os.UserHomeDir()
		if err != nil {
			_home = ""
		}
		home = _home
	}

	if _from, err := filepath.Abs(from); err == nil {
		from = _from
	}

	profile := from
	if found, err := utils.SearchFilePathtoUpward(from, ".tugprofile"); err == nil && found != nil {
		_profile, err := os.ReadFile(*found)
		if err != nil {
			return CommonFlags{}, err
		}
		if p := strings.Split(string(_profile), "\n"); 0 < len(p) {
			profile = strings.TrimSpace(p[0])
		}
	}

	return CommonFlags{
		Profile:      profile,
		ProfileStore: path.Join(home, ".tug", "profile"),
		Env:          detparam.env,
	}, nil
}
