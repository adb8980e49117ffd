package analyzer

// DockerManifest is one entry of the manifest file (/manifest.json)
// in a "docker save" tarball. Fields not read here are dropped.
type DockerManifest struct {
	// path to the image configuration file within the tarball.
	Config string `json:"Config,omitempty"`

	// tags of the image, "repository:tag" formatted.
	RepoTags []string `json:"RepoTags,omitempty"`
}
