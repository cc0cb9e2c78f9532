package app

import "fmt"

// Release builds stamp these with
// -ldflags "-X github.com/tejashwikalptaru/truestream/internal/app.Version=v1.2.0 ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo is the build stamp shown by --version and sent as the HTTP
// user agent.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
}

// GetVersionInfo returns the stamped build information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// release is the tag when the build has one, else the version.
func (v VersionInfo) release() string {
	if v.GitTag != "" {
		return v.GitTag
	}
	return v.Version
}

// FullString is the --version line and the version attribute of the startup log.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("TrueStream %s (commit: %s, built: %s)", v.release(), v.GitCommit, v.BuildTime)
}

// UserAgent identifies the fetcher and the collaborator clients, e.g. "truestream/v1.2.0".
func (v VersionInfo) UserAgent() string {
	return "truestream/" + v.release()
}
