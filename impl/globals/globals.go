package globals

// Version is the client version, set at build time with:
//
//	-ldflags "-X github.com/ecarrara/oci-registry-client/impl/globals.Version=..."
var Version = "dev"

// Defaults for the pull sub-command
const (
	DefaultConcurrency = 4
	DefaultChunkSize   = 32 * 1024
	DefaultPullTimeout = 60000
)

// ProgramName is the name of the binary
const ProgramName = "ociregistry-client"
