// Package constant defines immutable application-level identifiers and playback defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths, env prefixes and CLI branding.
	App = "pymusic"

	// Version is the current application semantic version string.
	Version = "0.3.0"
)

// Build metadata, overridden through -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// HTTP identity presented to stream hosts when the resolver returns no headers of its own.
const (
	AndroidAppUserAgent = "com.google.android.youtube/19.20.0 (Linux; U; Android 12) gzip"
	AndroidWebUserAgent = "Mozilla/5.0 (Linux; Android 12; Mobile) AppleWebKit/537.36 (KHTML, like Gecko) Chrome Mobile Safari/537.36"
	AcceptLanguage      = "en-US,en;q=0.9"
	Referer             = "https://www.youtube.com"
)

// WatchURL is prefixed to bare video identifiers to form a resolvable reference.
const WatchURL = "https://www.youtube.com/watch?v="

// IntentPrefix namespaces notification action intents routed to the player.
const IntentPrefix = "org.koteuka404.pymusic"
