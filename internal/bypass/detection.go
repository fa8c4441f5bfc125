package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP exchange the detectors inspect.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether res is a bot challenge or block page and, if so,
// which vendor served it.
type Detector func(res Response) (detected bool, source string)

// signature describes one vendor's block page.
type signature struct {
	source   string
	statuses []int
	servers  []string
	headers  []string
	bodies   [][]byte
}

var signatures = []signature{
	{
		source:   "Cloudflare",
		statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		servers:  []string{"cloudflare"},
		bodies: [][]byte{
			[]byte("cf-browser-verification"),
			[]byte("cf-turnstile"),
			[]byte("Attention Required! | Cloudflare"),
		},
	},
	{
		source:   "Akamai",
		statuses: []int{http.StatusForbidden},
		servers:  []string{"akamai"},
	},
	{
		source:   "DataDome",
		statuses: []int{http.StatusForbidden},
		servers:  []string{"datadome"},
		headers:  []string{"X-DataDome", "X-DataDome-Response"},
		bodies:   [][]byte{[]byte("geo.captcha-delivery.com")},
	},
	{
		source:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		bodies:   [][]byte{[]byte("client.perimeterx.net"), []byte("px-captcha")},
	},
	{
		// DuckDuckGo answers automated traffic with a 202 anomaly page.
		source:   "DuckDuckGo",
		statuses: []int{http.StatusAccepted, http.StatusForbidden},
		bodies:   [][]byte{[]byte("anomaly-modal"), []byte("bots use DuckDuckGo too")},
	},
}

// DefaultDetectors returns one detector per known vendor signature plus the
// Akamai "Reference #" block page check.
func DefaultDetectors() []Detector {
	detectors := make([]Detector, 0, len(signatures)+1)
	for _, sig := range signatures {
		detectors = append(detectors, sig.detect)
	}
	return append(detectors, detectAkamaiReference)
}

// Analyze runs res through detectors and returns the first vendor that
// matched.
func Analyze(res Response, detectors []Detector) (source string, blocked bool) {
	for _, d := range detectors {
		if ok, src := d(res); ok {
			return src, true
		}
	}
	return "", false
}

func (s signature) detect(res Response) (bool, string) {
	if !containsInt(s.statuses, res.StatusCode) {
		return false, ""
	}
	server := strings.ToLower(res.Header.Get("Server"))
	for _, want := range s.servers {
		if strings.Contains(server, want) {
			return true, s.source
		}
	}
	for _, h := range s.headers {
		if res.Header.Get(h) != "" {
			return true, s.source
		}
	}
	for _, b := range s.bodies {
		if bytes.Contains(res.Body, b) {
			return true, s.source
		}
	}
	return false, ""
}

func detectAkamaiReference(res Response) (bool, string) {
	if res.StatusCode == http.StatusForbidden &&
		bytes.Contains(res.Body, []byte("Reference #")) &&
		bytes.Contains(res.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
