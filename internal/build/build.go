// Package build provides build information that is linked into the binary.
// Other packages use it in logs and metric names.
package build

// ProjectName is the namespace of every metric the project exports.
const ProjectName = "flwor"

var (
	// Version is the released version, set with -ldflags.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "none"
	// Date is the build date.
	Date = "unknown"
)
