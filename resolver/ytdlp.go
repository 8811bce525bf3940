package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command as a child process.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %s", name, lastLine(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// YtDlp resolves references by running yt-dlp once per client strategy until one yields a playable format.
type YtDlp struct {
	Binary  string
	Clients []string
	Mode    Mode
	Timeout time.Duration
	Run     Runner
}

// NewYtDlp creates a resolver with defaults filled in for empty fields.
func NewYtDlp(binary string, clients []string, mode Mode, timeout time.Duration) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	if len(clients) == 0 {
		clients = []string{"android", "web"}
	}
	return &YtDlp{
		Binary:  binary,
		Clients: clients,
		Mode:    mode,
		Timeout: timeout,
		Run:     ExecRunner,
	}
}

type ytFormat struct {
	URL         string            `json:"url"`
	Ext         string            `json:"ext"`
	ACodec      string            `json:"acodec"`
	VCodec      string            `json:"vcodec"`
	Protocol    string            `json:"protocol"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

type ytInfo struct {
	Title       string            `json:"title"`
	Channel     string            `json:"channel"`
	Uploader    string            `json:"uploader"`
	Thumbnail   string            `json:"thumbnail"`
	Duration    float64           `json:"duration"`
	URL         string            `json:"url"`
	HTTPHeaders map[string]string `json:"http_headers"`
	Formats     []ytFormat        `json:"formats"`
}

func (y *YtDlp) Resolve(ctx context.Context, ref string) (*Stream, error) {
	ref = NormalizeRef(ref)
	if ref == "" {
		return nil, &ResolutionError{Ref: ref, Err: errors.New("empty reference")}
	}

	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	var lastErr error
	for _, client := range y.Clients {
		if err := ctx.Err(); err != nil {
			return nil, &ResolutionError{Ref: ref, Err: err}
		}

		info, err := y.extract(ctx, ref, client)
		if err != nil {
			log.Debugf("yt-dlp client %s failed for %s: %v", client, ref, err)
			lastErr = err
			continue
		}

		stream, err := y.pick(info)
		if err != nil {
			log.Debugf("yt-dlp client %s gave no stream for %s", client, ref)
			lastErr = err
			continue
		}

		return stream, nil
	}

	if lastErr == nil {
		lastErr = ErrNoStream
	}
	return nil, &ResolutionError{Ref: ref, Err: lastErr}
}

func (y *YtDlp) extract(ctx context.Context, ref, client string) (*ytInfo, error) {
	args := []string{
		"-J",
		"--no-playlist",
		"--skip-download",
		"--no-warnings",
		"--extractor-args", "youtube:player_client=" + client,
		"--add-header", "User-Agent:" + constant.AndroidAppUserAgent,
		"--add-header", "Accept-Language:" + constant.AcceptLanguage,
		"--add-header", "Referer:" + constant.Referer,
		"--",
		ref,
	}

	out, err := y.Run(ctx, y.Binary, args...)
	if err != nil {
		return nil, err
	}

	var info ytInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	return &info, nil
}

func (y *YtDlp) pick(info *ytInfo) (*Stream, error) {
	streamURL := info.URL
	headers := info.HTTPHeaders

	if streamURL == "" || (y.Mode == ModeVideo && !looksPlayable(streamURL)) {
		var chosen mo.Option[ytFormat]
		if y.Mode == ModeVideo {
			chosen = pickVideo(info.Formats)
		} else {
			chosen = pickAudio(info.Formats)
		}

		format, ok := chosen.Get()
		if !ok {
			return nil, ErrNoStream
		}
		streamURL = format.URL
		headers = format.HTTPHeaders
	}

	return &Stream{
		URL:          streamURL,
		Headers:      completeHeaders(headers),
		ExpiresAt:    parseExpiry(streamURL),
		ThumbnailURL: info.Thumbnail,
		Title:        info.Title,
		Channel:      lo.CoalesceOrEmpty(info.Channel, info.Uploader),
		Duration:     time.Duration(info.Duration * float64(time.Second)),
	}, nil
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

func isAudioOnly(f ytFormat) bool {
	return f.URL != "" && !hasCodec(f.VCodec) && hasCodec(f.ACodec)
}

// pickAudio prefers opus or webm, then m4a, then any audio-only format.
func pickAudio(formats []ytFormat) mo.Option[ytFormat] {
	preferences := []func(ytFormat) bool{
		func(f ytFormat) bool { return strings.HasPrefix(strings.ToLower(f.ACodec), "opus") || f.Ext == "webm" },
		func(f ytFormat) bool { return f.Ext == "m4a" },
		func(ytFormat) bool { return true },
	}
	return pickFirst(formats, isAudioOnly, preferences)
}

// pickVideo prefers muxed mp4, then HLS, then any format with video.
func pickVideo(formats []ytFormat) mo.Option[ytFormat] {
	preferences := []func(ytFormat) bool{
		func(f ytFormat) bool { return hasCodec(f.VCodec) && hasCodec(f.ACodec) && f.Ext == "mp4" },
		func(f ytFormat) bool { return strings.Contains(f.URL, "m3u8") },
		func(f ytFormat) bool { return hasCodec(f.VCodec) },
	}
	return pickFirst(formats, func(f ytFormat) bool { return f.URL != "" }, preferences)
}

func pickFirst(formats []ytFormat, eligible func(ytFormat) bool, preferences []func(ytFormat) bool) mo.Option[ytFormat] {
	for _, prefer := range preferences {
		if f, ok := lo.Find(formats, func(f ytFormat) bool { return eligible(f) && prefer(f) }); ok {
			return mo.Some(f)
		}
	}
	return mo.None[ytFormat]()
}

func looksPlayable(u string) bool {
	return strings.Contains(u, "googlevideo.com") ||
		strings.Contains(u, "m3u8") ||
		strings.HasSuffix(u, ".mp4")
}

// parseExpiry reads the unix-seconds "expire" query parameter of a stream URL.
func parseExpiry(raw string) mo.Option[time.Time] {
	u, err := url.Parse(raw)
	if err != nil {
		return mo.None[time.Time]()
	}

	value := u.Query().Get("expire")
	if value == "" {
		return mo.None[time.Time]()
	}

	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ts <= 0 {
		return mo.None[time.Time]()
	}
	return mo.Some(time.Unix(ts, 0))
}

// completeHeaders fills in the headers the CDN expects without overriding what yt-dlp returned.
func completeHeaders(src map[string]string) map[string]string {
	headers := lo.PickBy(src, func(k, v string) bool { return k != "" && v != "" })
	defaults := map[string]string{
		"User-Agent":      constant.AndroidWebUserAgent,
		"Accept-Language": constant.AcceptLanguage,
		"Referer":         constant.Referer,
		"Connection":      "keep-alive",
	}
	for k, v := range defaults {
		if _, ok := headers[k]; !ok {
			headers[k] = v
		}
	}
	return headers
}

func lastLine(s string) string {
	lines := lo.Filter(strings.Split(strings.TrimSpace(s), "\n"), func(l string, _ int) bool {
		return strings.TrimSpace(l) != ""
	})
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
