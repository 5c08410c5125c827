package constants

// Version of kforge, overridden at link time with
// -ldflags "-X github.com/nanovms/kforge/constants.Version=...".
var Version = "0.1.0"

const (
	// WarningColor used in warning texts
	WarningColor = "\033[1;33m%s\033[0m"
	// ErrorColor used in error texts
	ErrorColor = "\033[1;31m%s\033[0m"
)
