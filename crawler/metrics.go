package crawler

import (
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fetchOutcome string

const (
	fetchOutcomeOk        fetchOutcome = "ok"
	fetchOutcomeTransport fetchOutcome = "transport_failure"
	fetchOutcomeStatus    fetchOutcome = "bad_status"
	fetchOutcomeEmpty     fetchOutcome = "empty"
	fetchOutcomeRedirect  fetchOutcome = "script_redirect"
)

var (
	mirrorFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galmirror_mirror_fetch_total",
			Help: "Upstream fetch attempts by host and outcome",
		},
		[]string{"host", "outcome"},
	)

	commentPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galmirror_comment_pages_total",
			Help: "Comment pages requested from the upstream",
		},
	)
)

// Only the upstream's own hosts get a label of their own
var knownFetchHosts = map[string]bool{
	"m.dcinside.com":      true,
	"gall.dcinside.com":   true,
	"search.dcinside.com": true,
}

const mediaFetchHost = "media"

func recordFetch(rawUrl string, outcome fetchOutcome) {
	mirrorFetchTotal.WithLabelValues(fetchHostLabel(rawUrl), string(outcome)).Inc()
}

// recordMediaFetch keeps user-supplied media urls out of the label set
func recordMediaFetch(outcome fetchOutcome) {
	mirrorFetchTotal.WithLabelValues(mediaFetchHost, string(outcome)).Inc()
}

func fetchHostLabel(rawUrl string) string {
	uri, err := url.Parse(rawUrl)
	if err != nil || uri.Host == "" {
		return "invalid"
	}
	host := strings.ToLower(uri.Hostname())
	if knownFetchHosts[host] {
		return host
	}
	return "other"
}
