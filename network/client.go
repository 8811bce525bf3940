// Package network provides the HTTP client used for outbound requests that are not media streams.
package network

import (
	"net/http"
	"time"

	"github.com/KoTeuKa404/pymusic/constant"
)

// Client is shared by every outbound API request.
var Client = &http.Client{
	Timeout:   10 * time.Second,
	Transport: &userAgent{next: newTransport()},
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 10
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 5 * time.Second
	return t
}

// userAgent identifies the application unless the request already sets an agent.
type userAgent struct {
	next http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", constant.App+"/"+constant.Version)
	return u.next.RoundTrip(req)
}
