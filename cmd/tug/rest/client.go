package rest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	tprof "github.com/taskflow-dev/tugboat/cmd/tug/config/profiles"
	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	"github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	"github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/utils"
)

// FindAppParameter is the query for FindApps.
//
// Empty fields put no restriction.
type FindAppParameter struct {
	Name []string
	Env  []string
}

// FindReleaseParameter is the query for FindReleases.
//
// Empty fields put no restriction.
type FindReleaseParameter struct {
	App   []string
	Since *time.Time
}

// FindRolloutParameter is the query for FindRollouts.
//
// Empty fields put no restriction.
type FindRolloutParameter struct {
	App       []string
	ReleaseId []string
	Status    []string
	Since     *time.Time
	Until     *time.Time
}

type TugClient interface {
	// RegisterApp registers a new app.
	//
	// Args
	//
	// - context.Context
	//
	// - apps.Spec: spec of the app to be registered
	//
	// Returns
	//
	// - apps.Detail: metadata of the registered app
	//
	// - error
	RegisterApp(ctx context.Context, spec apps.Spec) (apps.Detail, error)

	// GetApp gets an app with given name.
	//
	// Args
	//
	// - context.Context
	//
	// - string: name of the app to be found
	//
	// - string: environment the app should belong to. Empty matches any.
	//
	// Returns
	//
	// - apps.Detail: metadata of the found app
	//
	// - error
	GetApp(ctx context.Context, name string, env string) (apps.Detail, error)

	// FindApps finds apps matching the given query.
	//
	// Args
	//
	// - context.Context
	//
	// - FindAppParameter
	//
	// Returns
	//
	// - []apps.Detail: metadata of found apps
	//
	// - error
	FindApps(ctx context.Context, query FindAppParameter) ([]apps.Detail, error)

	// UpdateApp updates a registered app.
	//
	// Args
	//
	// - context.Context
	//
	// - string: name of the app to be updated
	//
	// - apps.Change: fields to be updated. nil fields are left as they are.
	//
	// Returns
	//
	// - apps.Detail: metadata of the updated app
	//
	// - error
	UpdateApp(ctx context.Context, name string, change apps.Change) (apps.Detail, error)

	// DeleteApp unregisters an app and disposes its cluster objects.
	//
	// Args
	//
	// - context.Context
	//
	// - string: name of the app to be deleted
	//
	// Returns
	//
	// - error
	DeleteApp(ctx context.Context, name string) error

	// RegisterRelease cuts a new release.
	//
	// Args
	//
	// - context.Context
	//
	// - releases.Spec: spec of the release to be cut
	//
	// Returns
	//
	// - releases.Detail: metadata of the cut release
	//
	// - error
	RegisterRelease(ctx context.Context, spec releases.Spec) (releases.Detail, error)

	// GetRelease gets a release with given releaseId.
	GetRelease(ctx context.Context, releaseId string) (releases.Detail, error)

	// FindReleases finds releases matching the given query.
	FindReleases(ctx context.Context, query FindReleaseParameter) ([]releases.Detail, error)

	// StartRollout starts a rollout of the given release.
	//
	// Args
	//
	// - context.Context
	//
	// - string: releaseId to be rolled out
	//
	// Returns
	//
	// - rollouts.Detail: metadata of the started rollout
	//
	// - error
	StartRollout(ctx context.Context, releaseId string) (rollouts.Detail, error)

	// GetRollout gets a rollout with given rolloutId.
	GetRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error)

	// FindRollouts finds rollouts matching the given query.
	FindRollouts(ctx context.Context, query FindRolloutParameter) ([]rollouts.Detail, error)

	// AbortRollout asks the server to roll the given rollout back.
	//
	// Args
	//
	// - context.Context
	//
	// - string: rolloutId to be aborted
	//
	// Returns
	//
	// - rollouts.Detail: metadata of the aborted rollout
	//
	// - error
	AbortRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error)

	// RetryRollout starts a new rollout of the same release as the given one.
	//
	// Args
	//
	// - context.Context
	//
	// - string: rolloutId of a rolledback/failed rollout to be retried
	//
	// Returns
	//
	// - rollouts.Detail: metadata of the new rollout
	//
	// - error
	RetryRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error)

	// InvalidateRollout invalidates a waiting rollout.
	//
	// Args
	//
	// - context.Context
	//
	// - string: rolloutId to be invalidated
	//
	// Returns
	//
	// - rollouts.Detail: metadata of the invalidated rollout
	//
	// - error
	InvalidateRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error)

	// GetGateReports gets validation gate reports of a rollout.
	//
	// Args
	//
	// - context.Context
	//
	// - string: rolloutId whose reports to be fetched
	//
	// Returns
	//
	// - []rollouts.GateReport: reports, oldest first
	//
	// - error
	GetGateReports(ctx context.Context, rolloutId string) ([]rollouts.GateReport, error)
}

type client struct {
	httpclient *http.Client
	api        string
}

// create new tug client for TugProfile
//
// # Args
//
// - *tprof.TugProfile
//
// # Return
//
// - TugClient: created client
//
// - error: If given profile is invalid, ErrProfileInvalid is returned.
func NewClient(prof *tprof.TugProfile) (TugClient, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}
	httpclient := new(http.Client)

	if prof.Cert.CA != "" {
		hc, err := trustCa(httpclient, []string{prof.Cert.CA})
		if err != nil {
			return nil, err
		}
		httpclient = hc
	}

	c := &client{
		httpclient: httpclient,
		api:        strings.TrimSuffix(prof.ApiRoot, "/"),
	}

	return c, nil
}

// build URL with path
func (c *client) apipath(path ...string) string {
	path = utils.Map(path, func(p string) string {
		return strings.TrimPrefix(strings.TrimSuffix(p, "/"), "/")
	})

	return strings.Join(append([]string{c.api}, path...), "/")
}

func trustCa(hc *http.Client, cacerts []string) (*http.Client, error) {
	if len(cacerts) <= 0 {
		return hc, nil
	}

	if hc.Transport == nil {
		hc.Transport = http.DefaultTransport
	}

	tran, ok := hc.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("failed to add ca cert")
	}
	tran = tran.Clone()

	tcc := tran.TLSClientConfig.Clone()
	if tcc == nil {
		tcc = &tls.Config{}
	}

	rootcas := tcc.RootCAs
	if rootcas == nil {
		rootcas = x509.NewCertPool()
		tcc.RootCAs = rootcas
	}
	for _, ca := range cacerts {
		bin, err := base64.StdEncoding.DecodeString(ca)
		if err != nil {
			return nil, err
		}

		if !rootcas.AppendCertsFromPEM(bin) {
			return nil, fmt.Errorf("failed to add cert")
		}
	}

	tran.TLSClientConfig = tcc
	hc.Transport = tran
	return hc, nil
}
