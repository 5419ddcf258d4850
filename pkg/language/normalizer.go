package language

import (
	"context"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"github.com/sirupsen/logrus"
)

// RemoteDetector is the provider-pool detection contract. It is consulted as
// a second opinion when the in-process detector lands outside the supported
// set. *translate.Pool satisfies it.
type RemoteDetector interface {
	Detect(ctx context.Context, text string) string
}

// Override maps a phrase in the raw text to a forced language code.
// The table is evaluated in slice order; the first phrase contained in the
// lowercased input wins. This is how a user pivots language mid-conversation
// ("tell me about Goa in hindi").
type Override struct {
	Phrase string
	Code   Code
}

// DefaultOverrides returns the explicit-language request table.
func DefaultOverrides() []Override {
	return []Override{
		{Phrase: "in english", Code: English},
		{Phrase: "in hindi", Code: Hindi},
		{Phrase: "hindi mein", Code: Hindi},
		{Phrase: "hindi me", Code: Hindi},
		{Phrase: "in marathi", Code: Marathi},
		{Phrase: "marathi madhe", Code: Marathi},
		{Phrase: "in tamil", Code: Tamil},
		{Phrase: "in telugu", Code: Telugu},
		{Phrase: "in bengali", Code: Bengali},
		{Phrase: "in gujarati", Code: Gujarati},
		{Phrase: "in kannada", Code: Kannada},
	}
}

// misclassified lists codes the statistical detector commonly produces for
// short Romanized Indic text. Observed in production traffic: "namaste ji"
// classifies as Italian, "kahaan jaana hai" as Hausa, Nepali or Tagalog,
// native Devanagari as Bhojpuri.
var misclassified = map[Code]bool{
	"it": true,
	"ne": true,
	"tl": true,
	"so": true,
	"cy": true,
	"az": true,
	"da": true,
	"et": true,
	"id": true,
	"sw": true,
	"bh": true,
	"ha": true,
	"jv": true,
	"uz": true,
}

// shortTextRunes bounds the "short text" heuristic used by the
// misclassification guard.
const shortTextRunes = 48

// Normalizer classifies free text into a supported language code.
//
// The policy is deliberately heuristic: short, noisy chat input defeats
// statistical detection, so a fixed rule chain runs around the detector.
// Normalize never panics and always returns a member of the supported set.
type Normalizer struct {
	supported map[Code]bool
	overrides []Override
	remote    RemoteDetector
	logger    *logrus.Logger
}

// NewNormalizer creates a Normalizer for the given supported set and override
// table. Nil or empty arguments fall back to the defaults; a nil remote
// disables the second-opinion lookup. The canonical English code is always
// added to the supported set.
func NewNormalizer(supported []Code, overrides []Override, remote RemoteDetector, logger *logrus.Logger) *Normalizer {
	if len(supported) == 0 {
		supported = DefaultSupported()
	}
	if overrides == nil {
		overrides = DefaultOverrides()
	}
	if logger == nil {
		logger = logrus.New()
	}

	set := make(map[Code]bool, len(supported)+1)
	set[English] = true
	for _, c := range supported {
		set[c] = true
	}

	return &Normalizer{
		supported: set,
		overrides: overrides,
		remote:    remote,
		logger:    logger,
	}
}

// Supported reports whether code is in the supported set.
func (n *Normalizer) Supported(code Code) bool {
	return n.supported[code]
}

// Normalize resolves raw text to a supported language code.
//
// Rule chain, first match wins:
//  1. an explicit-language phrase from the override table forces that code;
//  2. one or two purely Latin-script words are treated as a place name or
//     short greeting and default to English, whatever the detector thinks;
//  3. statistical detection; an unsupported guess over Devanagari text is
//     taken as detector confusion among Devanagari languages and resolves
//     to Hindi;
//  4. misclassification guard: an unsupported guess from the guard table, or
//     over short ASCII text without English markers, is remapped; short text
//     without English markers to Hindi, longer text to English;
//  5. remaining unsupported guesses go to the provider pool for a second
//     opinion; anything still outside the supported set falls back to
//     English.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Code {
	text := strings.TrimSpace(raw)
	if text == "" {
		return English
	}

	lowered := strings.ToLower(text)
	for _, ov := range n.overrides {
		if strings.Contains(lowered, ov.Phrase) {
			n.logger.WithFields(logrus.Fields{
				"phrase": ov.Phrase,
				"code":   ov.Code,
			}).Debug("Explicit language override matched")
			return n.clamp(ov.Code)
		}
	}

	if isShortLatin(text) {
		return English
	}

	code := statisticalGuess(text)

	if !n.supported[code] {
		switch {
		case hasDevanagari(text):
			// The detector confuses Devanagari languages with one another
			// (Hindi text regularly classifies as Bhojpuri or Nepali).
			n.logger.WithField("detected", code).Debug("Devanagari text remapped to Hindi")
			code = Hindi
		case misclassified[code] || shortRomanized(text):
			// Short chat-sized input that lands on a guard code is almost
			// always Romanized Hindi; longer runs of pure ASCII are almost
			// always English the detector got wrong. The pool is not
			// consulted here: remote detectors fumble Romanized Hindi the
			// same way, and on exhaustion the pool answers with the default
			// code, which would mask the remap.
			remapped := English
			if runeCount(text) <= shortTextRunes && (!isASCII(text) || !looksEnglish(text)) {
				remapped = Hindi
			}
			n.logger.WithFields(logrus.Fields{
				"detected": code,
				"remapped": remapped,
			}).Debug("Misclassification guard remapped detected language")
			code = remapped
		case n.remote != nil:
			if remote := ParseCode(n.remote.Detect(ctx, text)); n.supported[remote] {
				n.logger.WithFields(logrus.Fields{
					"local":  code,
					"remote": remote,
				}).Debug("Remote detection overrode local guess")
				code = remote
			}
		}
	}

	return n.clamp(code)
}

// clamp maps anything outside the supported set to English.
func (n *Normalizer) clamp(code Code) Code {
	if n.supported[code] {
		return code
	}
	return English
}

// statisticalGuess runs the whatlanggo detector. The detector can misbehave on
// degenerate input (emoji-only, control characters), so any panic is absorbed
// and mapped to English.
func statisticalGuess(text string) (code Code) {
	code = English
	defer func() {
		if r := recover(); r != nil {
			code = English
		}
	}()

	info := whatlanggo.Detect(text)
	if info.Lang == -1 {
		return English
	}
	short := whatlanggo.LangToStringShort(info.Lang)
	if short == "" {
		return English
	}
	return Code(short)
}

// isShortLatin reports whether text is at most two words of purely
// Latin-script letters. Bare place names and greetings ("Goa", "Hello there")
// land here and should not be run through the detector.
func isShortLatin(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 2 {
		return false
	}
	for _, w := range words {
		for _, r := range w {
			if !unicode.IsLetter(r) || !unicode.Is(unicode.Latin, r) {
				return false
			}
		}
	}
	return true
}

// englishMarkers are function words whose presence marks short ASCII text as
// English rather than Romanized Hindi.
var englishMarkers = map[string]bool{
	"the": true, "is": true, "are": true, "a": true, "an": true,
	"to": true, "of": true, "you": true, "i": true, "my": true,
	"what": true, "where": true, "how": true, "can": true, "please": true,
}

// looksEnglish reports whether short ASCII text carries an English function
// word. Romanized Hindi ("kahaan jaana hai") carries none.
func looksEnglish(text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if englishMarkers[strings.Trim(w, ".,!?;:")] {
			return true
		}
	}
	return false
}

// shortRomanized reports whether text is chat-sized pure ASCII with no
// English function word, the shape Romanized Hindi arrives in.
func shortRomanized(text string) bool {
	return isASCII(text) && runeCount(text) <= shortTextRunes && !looksEnglish(text)
}

func hasDevanagari(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	return false
}

func isASCII(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > 127 {
			return false
		}
	}
	return true
}

func runeCount(text string) int {
	count := 0
	for range text {
		count++
	}
	return count
}
