package translate

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLanguage is returned by Detect when every endpoint has failed.
const DefaultLanguage = "en"

// Pool tries an ordered list of providers until one succeeds.
//
// The pool fails open, never loud: when every endpoint is down, Translate
// returns the input unchanged and Detect returns DefaultLanguage. The
// assistant must always answer, even degraded, so no error crosses the pool
// boundary. The pool keeps no state between calls; a dead endpoint is retried
// fresh on the next invocation.
type Pool struct {
	providers []Provider
	logger    *logrus.Logger
}

// NewPool creates a failover pool. Provider order defines priority.
func NewPool(providers []Provider, logger *logrus.Logger) *Pool {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pool{
		providers: providers,
		logger:    logger,
	}
}

// Size returns the number of configured providers.
func (p *Pool) Size() int {
	return len(p.providers)
}

// CheckHealth probes every provider and returns how many are healthy. The
// result is advisory: a pool with zero healthy providers still serves
// traffic, it just fails open.
func (p *Pool) CheckHealth(ctx context.Context) int {
	healthy := 0
	for _, provider := range p.providers {
		if err := provider.CheckHealth(ctx); err != nil {
			p.logger.WithError(err).WithField("endpoint", provider.Name()).Warn("Endpoint health check failed")
			continue
		}
		healthy++
	}
	return healthy
}

// Translate translates text across the provider list, first success wins.
// Empty or whitespace-only text and identical source/target are returned
// unchanged without touching the network. On total exhaustion the original
// text comes back unchanged.
func (p *Pool) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if strings.TrimSpace(text) == "" || sourceLang == targetLang {
		return text
	}

	attempts := make([]Attempt, 0, len(p.providers))
	for _, provider := range p.providers {
		startTime := time.Now()
		translated, err := provider.Translate(ctx, text, sourceLang, targetLang)
		observeProviderRequest(provider.Name(), "translate", time.Since(startTime), err)

		attempts = append(attempts, Attempt{Provider: provider.Name(), Err: err})
		if err == nil {
			return translated
		}

		p.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint":    provider.Name(),
			"source_lang": sourceLang,
			"target_lang": targetLang,
		}).Debug("Translation endpoint failed, trying next")
	}

	poolExhaustedTotal.WithLabelValues("translate").Inc()
	p.logger.WithFields(logrus.Fields{
		"attempts":    len(attempts),
		"source_lang": sourceLang,
		"target_lang": targetLang,
	}).Warn("All translation endpoints down, returning original text")

	return text
}

// Detect resolves the language of text across detect-capable providers.
// Empty text and total exhaustion both resolve to DefaultLanguage.
func (p *Pool) Detect(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return DefaultLanguage
	}

	attempts := make([]Attempt, 0, len(p.providers))
	for _, provider := range p.providers {
		if !provider.CanDetect() {
			continue
		}

		startTime := time.Now()
		code, err := provider.Detect(ctx, text)
		observeProviderRequest(provider.Name(), "detect", time.Since(startTime), err)

		attempts = append(attempts, Attempt{Provider: provider.Name(), Err: err})
		if err == nil {
			return strings.ToLower(code)
		}

		p.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": provider.Name(),
		}).Debug("Detection endpoint failed, trying next")
	}

	poolExhaustedTotal.WithLabelValues("detect").Inc()
	p.logger.WithFields(logrus.Fields{
		"attempts": len(attempts),
	}).Warn("All detection endpoints down, returning default language")

	return DefaultLanguage
}
