package app

import "github.com/spf13/pflag"

// Flag names for command inputs
const (
	FlagInput = "input"
	FlagDir   = "dir"
)

// RegisterFlags registers the settings flags shared by all commands
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("base-dir", "b", "", "Data directory for the index, manifest and lock")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")

	flags.String("hash-algorithm", "", "Content hash algorithm: sha256 or xxhash")
	flags.Int("content-threshold", 0, "Documents with at most this many characters are skipped")
	flags.Float64("similarity-threshold", 0, "Minimum combined similarity for near-duplicates (0-1)")
	flags.StringSlice("source-winners", nil, "Source precedence for canonical selection (comma-separated)")
	flags.Int("batch-size", 0, "Documents per deduplication batch (max 1000)")

	flags.String("index-name", "", "Name of the document index")
	flags.Int("max-results", 0, "Maximum search results")
	flags.Int64("max-file-size", 0, "Maximum file size in bytes for directory scans")
	flags.Int("existence-concurrency", 0, "Concurrent existence lookups during ingest")
	flags.Bool("skip-existing", true, "Skip documents whose fingerprint is already indexed")

	flags.Bool("redis-enabled", false, "Cache checksum lookups in Redis")
	flags.String("redis-addr", "", "Redis address (host:port)")
}

// RegisterDedupFlags registers flags for the dedup command
func RegisterDedupFlags(flags *pflag.FlagSet) {
	flags.StringP(FlagInput, "i", "", "Input file: JSON array or JSON lines of documents")
}

// RegisterIngestFlags registers flags for the ingest command
func RegisterIngestFlags(flags *pflag.FlagSet) {
	flags.StringP(FlagInput, "i", "", "Input file: JSON array or JSON lines of documents")
	flags.StringP(FlagDir, "d", "", "Directory to scan for local documents")
}
