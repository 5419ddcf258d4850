package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Endpoint describes one configured translation endpoint. The slice order in
// configuration defines failover priority.
type Endpoint struct {
	// Name identifies the endpoint in logs and metrics. Derived from the URL
	// host when empty.
	Name string
	// URL is the base URL of a LibreTranslate-compatible API.
	URL string
	// Timeout bounds each request. Defaults to DefaultEndpointTimeout.
	Timeout time.Duration
	// Detect marks whether the endpoint exposes the /detect route.
	Detect bool
}

// DefaultEndpoints returns the public mirrors the assistant falls back
// across when no endpoints are configured.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Name: "libretranslate-de", URL: "https://libretranslate.de", Detect: true},
		{Name: "terraprint", URL: "https://translate.terraprint.co", Detect: true},
		{Name: "argosopentech", URL: "https://translate.argosopentech.com", Detect: false},
	}
}

// NewPoolFromEndpoints builds a failover pool from endpoint configuration.
func NewPoolFromEndpoints(endpoints []Endpoint, logger *logrus.Logger) (*Pool, error) {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints()
	}
	if logger == nil {
		logger = logrus.New()
	}

	providers := make([]Provider, 0, len(endpoints))
	for i, ep := range endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("endpoint %d: URL is required", i)
		}
		name := ep.Name
		if name == "" {
			name = endpointName(ep.URL)
		}

		logger.WithFields(logrus.Fields{
			"endpoint": name,
			"base_url": ep.URL,
			"detect":   ep.Detect,
			"priority": i,
		}).Info("Registering translation endpoint")

		providers = append(providers, NewLibreClient(name, ep.URL, ep.Timeout, ep.Detect, logger))
	}

	return NewPool(providers, logger), nil
}

// endpointName derives a log-friendly name from a base URL.
func endpointName(url string) string {
	name := url
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	if idx := strings.IndexAny(name, "/:"); idx >= 0 {
		name = name[:idx]
	}
	return name
}
