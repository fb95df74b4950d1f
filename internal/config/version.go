package config

// Build metadata, set with -ldflags "-X github.com/edirooss/gst-architect/internal/config.Version=...".
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)
