package analyzer

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
)

// TaggedConfig is an image configuration and the repository tags that
// point at it.
type TaggedConfig struct {
	Tags   []string
	Config Config
}

func (tc TaggedConfig) Equal(o TaggedConfig) bool {
	return cmp.SliceEq(tc.Tags, o.Tags) && tc.Config.Equal(o.Config)
}

type peekReader struct {
	peeking bool
	r       io.Reader
	head    byte
}

func (pr *peekReader) Read(p []byte) (n int, err error) {
	if pr.peeking {
		p[0] = pr.head
		pr.peeking = false
		return 1, nil
	}
	return pr.r.Read(p)
}

func (pr *peekReader) Peek() (byte, error) {
	if pr.peeking {
		return pr.head, nil
	}
	var b [1]byte
	n, err := pr.r.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	pr.peeking = true
	pr.head = b[0]
	return pr.head, nil
}

// Analyze reads a "docker save"-style tar stream in a single pass and
// returns every image configuration found, paired with its tags.
func Analyze(ctx context.Context, stream io.Reader) ([]TaggedConfig, error) {
	images := map[string]Image{}
	manifests := []DockerManifest{}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if hdr.Name == "manifest.json" {
			if err := json.NewDecoder(tr).Decode(&manifests); err != nil {
				return nil, err
			}

			continue
		}

		// Not every tarball keeps its blobs under /blob (go-containerregistry's
		// tarball writer does not), so every regular file is sniffed: anything
		// starting with '{' is tried as an image configuration
		// ( https://github.com/opencontainers/image-spec/blob/main/config.md )
		// and quietly skipped when it decodes to something else.
		if !hdr.FileInfo().IsDir() {
			var img Image
			r := &peekReader{r: tr}
			p, err := r.Peek()
			if err != nil {
				return nil, err
			}
			if p != '{' {
				continue
			}
			if err := json.NewDecoder(r).Decode(&img); err != nil {
				if juterr := new(json.UnmarshalTypeError); errors.As(err, &juterr) {
					continue
				}
				if jsynerr := new(json.SyntaxError); errors.As(err, &jsynerr) {
					continue
				}
				return nil, err
			}
			if img.IsValid() {
				images[hdr.Name] = img
			}
		}
	}

	tagged := map[string]*TaggedConfig{}
	for name, img := range images {
		tagged[name] = &TaggedConfig{
			Tags:   []string{},
			Config: img.Config,
		}
	}

	// the manifest is the only place relating config blobs to repo tags.
	for _, manifest := range manifests {
		tc, ok := tagged[manifest.Config]
		if !ok {
			continue
		}
		tc.Tags = append(tc.Tags, manifest.RepoTags...)
	}

	var result []TaggedConfig
	for _, tc := range tagged {
		result = append(result, *tc)
	}

	return result, nil
}
