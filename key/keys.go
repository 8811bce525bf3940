// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback Engine - these keys select and tune the engine that renders resolved streams.
const (
	PlayerEngine  = "player.engine"
	PlayerMode    = "player.mode"
	PlayerMpvPath = "player.mpv_path"
)

// Session Control - these keys govern the orchestration of a single playback session.
const (
	SessionRepeat              = "session.repeat"
	SessionDebounceMs          = "session.debounce_ms"
	SessionRetryLimit          = "session.retry_limit"
	SessionRetryDelayMs        = "session.retry_delay_ms"
	SessionPreviousThresholdMs = "session.previous_threshold_ms"
)

// External Controls - these keys define per-source debounce windows for control signals.
const (
	ControlMediaButtonDebounceMs  = "control.media_button_debounce_ms"
	ControlNotificationDebounceMs = "control.notification_debounce_ms"
	ControlRemoteDebounceMs       = "control.remote_debounce_ms"
	ControlVolumeSwallowMs        = "control.volume_swallow_ms"
)

// Stream Cache - these keys bound the resolved stream cache.
const (
	CacheCapacity      = "cache.capacity"
	CacheSafetyMarginS = "cache.safety_margin_s"
	CachePersist       = "cache.persist"
)

// Recovery - these keys tune the stall watchdog and the expiry refresh scheduler.
const (
	WatchdogIntervalMs    = "watchdog.interval_ms"
	WatchdogStallTimeoutS = "watchdog.stall_timeout_s"
	WatchdogEndGuardMs    = "watchdog.end_guard_ms"
	RefreshLeadS          = "refresh.lead_s"
	RefreshMinDelayS      = "refresh.min_delay_s"
)

// Network Probe - these keys configure the reachability check used during recovery.
const (
	NetworkProbeAddress   = "network.probe_address"
	NetworkProbeTimeoutMs = "network.probe_timeout_ms"
)

// Resolver - these keys configure the external stream resolver.
const (
	ResolverBinary   = "resolver.binary"
	ResolverClients  = "resolver.clients"
	ResolverTimeoutS = "resolver.timeout_s"
)

// Remote Control - these keys expose the local HTTP control surface.
const (
	RemoteEnable  = "remote.enable"
	RemoteAddress = "remote.address"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
	IconsVariant    = "icons.variant"
)
