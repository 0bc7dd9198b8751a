package global

import "time"

// All constants related to the coverage engine
const (
	// DefaultAPITimeout is the timeout for outbound collaborator API calls.
	DefaultAPITimeout = 45 * time.Second
	// DefaultPort is the port the HTTP surface listens on.
	DefaultPort = "9876"
	// DefaultPackageDepth is the number of leading directory segments used
	// to group files into a package rollup.
	DefaultPackageDepth = 1
	// MaxUploadBytes caps the size of a raw coverage payload.
	MaxUploadBytes = 64 << 20
)

// BinaryVersion is stamped at build time via ldflags.
var BinaryVersion = "dev"

// Supported coverage payload format tags.
const (
	FormatCobertura = "cobertura"
	FormatCodecov   = "codecov"
	FormatClover    = "clover"
	FormatGolang    = "golang"
)
