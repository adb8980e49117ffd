package init

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	prof "github.com/taskflow-dev/tugboat/cmd/tug/config/profiles"
	"github.com/taskflow-dev/tugboat/cmd/tug/subcommands/common"
	"github.com/youta-t/flarc"
	"gopkg.in/yaml.v3"
)

const ARG_TUG_PROFILE_FILE = "TUG_PROFILE_FILE"

type Flag struct {
	Force bool `flag:"force" alias:"f" help:"overwrite the profile if it is already registered."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"initialize this directory as a tugboat-powered project.",
		Flag{},
		flarc.Args{
			{
				Name: ARG_TUG_PROFILE_FILE, Required: true,
				Help: "filepath to tugprofile file, which you received from your admin.",
			},
		},
		common.NewTaskWithCommonFlag(Task()),
		flarc.WithDescription(`
Register a new tugprofile into your profile store.

"tugprofile" is a file which contains information about a tugboat cluster.
"{{ .Command }}" registers the given tugprofile into your profile store.

The name of the profile is given by "--profile" ( default: current filepath ).
`),
	)
}

func Task() common.TugTaskWithCommonFlag[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag common.CommonFlags,
		cl flarc.Commandline[Flag],
		params []any,
	) error {
		args := cl.Args()
		profFile := args[ARG_TUG_PROFILE_FILE][0]

		profStore, err := prof.LoadProfileStore(commonFlag.ProfileStore)
		if errors.Is(err, prof.ErrProfileStoreNotFound) {
			// ok.
			profStore = prof.ProfileStore{}
		} else if err != nil {
			return fmt.Errorf(
				"failed to load profile store (%s): %w", commonFlag.ProfileStore, err,
			)
		}

		profName := commonFlag.Profile
		if _, ok := profStore[profName]; ok && !cl.Flags().Force {
			return fmt.Errorf(
				"%w: profile %s is already registered. pass --force to overwrite",
				flarc.ErrUsage, profName,
			)
		}

		newProf := new(prof.TugProfile)
		{
			content, err := os.ReadFile(profFile)
			if err != nil {
				return fmt.Errorf("failed to read profile file (%s): %w", profFile, err)
			}

			if err := yaml.Unmarshal(content, newProf); err != nil {
				return fmt.Errorf("failed to parse profile file (%s): %w", profFile, err)
			}
		}
		if err := newProf.Verify(); err != nil {
			return fmt.Errorf("%s: %w", profFile, err)
		}

		profStore[profName] = newProf
		if err := profStore.Save(commonFlag.ProfileStore); err != nil {
			return fmt.Errorf(
				"failed to save profile store (%s): %w", commonFlag.ProfileStore, err,
			)
		}
		logger.Printf(
			"profile %s is saved to %s", profName, commonFlag.ProfileStore,
		)

		{
			f, err := os.OpenFile(".tugprofile", os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.FileMode(0600))
			if err != nil {
				return fmt.Errorf("failed to open .tugprofile: %w", err)
			}
			defer f.Close()
			f.Write([]byte(profName))
		}

		return nil
	}
}
