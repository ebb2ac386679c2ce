package version

// Version is overridden at build time with
// -ldflags "-X github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/version.Version=v1.2.3".
var Version = "dev"
