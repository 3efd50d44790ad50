package version

import "runtime"

// Build variables set via ldflags, e.g.
// -X 'github.com/compozy/quizbank/pkg/version.Version=v1.0.0'
var (
	Version    = "unknown"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
}

func GetVersion() string { return Version }

func GetCommitHash() string { return CommitHash }
