// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/KoTeuKa404/pymusic/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlayerEngine, "mpv", "Playback engine to drive.\nOnly mpv is supported at the moment")
	register(key.PlayerMode, "audio", "What to resolve from a video reference.\nAvailable options are: audio, video")
	register(key.PlayerMpvPath, "mpv", "Path to the mpv executable")

	register(key.SessionRepeat, false, "Restart the current track when it completes")
	register(key.SessionDebounceMs, 250, "Minimum gap between accepted play/pause/toggle requests, in milliseconds")
	register(key.SessionRetryLimit, 3, "How many times a failed stream is re-resolved before playback stops")
	register(key.SessionRetryDelayMs, 1000, "Delay before re-resolving after a resolution failure, in milliseconds")
	register(key.SessionPreviousThresholdMs, 5000, "Past this position \"previous\" restarts the track instead of going back, in milliseconds")

	register(key.ControlMediaButtonDebounceMs, 300, "Debounce window for headset and media buttons, in milliseconds")
	register(key.ControlNotificationDebounceMs, 300, "Debounce window for notification actions, in milliseconds")
	register(key.ControlRemoteDebounceMs, 800, "Debounce window for remote control requests, in milliseconds")
	register(key.ControlVolumeSwallowMs, 800, "Volume keys arriving this soon after a media key are swallowed, in milliseconds")

	register(key.CacheCapacity, 50, "Maximum number of resolved streams kept in memory")
	register(key.CacheSafetyMarginS, 120, "Streams expiring within this many seconds are resolved again")
	register(key.CachePersist, true, "Keep resolved streams across restarts")

	register(key.WatchdogIntervalMs, 2000, "How often the watchdog samples playback, in milliseconds")
	register(key.WatchdogStallTimeoutS, 10, "Seconds without progress before a stalled stream is refreshed")
	register(key.WatchdogEndGuardMs, 1500, "Silent stops this close to the end of a track are not resumed, in milliseconds")
	register(key.RefreshLeadS, 60, "Refresh a stream this many seconds before its URL expires")
	register(key.RefreshMinDelayS, 5, "Lower bound for the expiry refresh delay, in seconds")

	register(key.NetworkProbeAddress, "1.1.1.1:53", "TCP address dialed to check connectivity")
	register(key.NetworkProbeTimeoutMs, 2000, "Connectivity check timeout, in milliseconds")

	register(key.ResolverBinary, "yt-dlp", "Path to the yt-dlp executable")
	register(key.ResolverClients, []string{"android", "web"}, "Extractor client strategies tried in order")
	register(key.ResolverTimeoutS, 45, "Upper bound for a single resolution, in seconds")

	register(key.RemoteEnable, false, "Serve the HTTP remote control while playing")
	register(key.RemoteAddress, "127.0.0.1:8790", "Listen address of the HTTP remote control")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Check for a newer release when showing help or the version")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(style.Mauve),
	"blue":     style.Fg(style.Blue),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(style.Green)(b)
			}
			return style.Fg(style.Red)(b)
		case string:
			return style.Fg(style.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
