package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/atlastlabs/yatra/pkg/language"
	"github.com/atlastlabs/yatra/pkg/memory"
	"github.com/atlastlabs/yatra/pkg/translate"
)

// ReplyMode selects the language of user-facing replies.
type ReplyMode string

const (
	// ReplyCanonical always answers in English.
	ReplyCanonical ReplyMode = "canonical"
	// ReplyLocalized answers in the language the user wrote in.
	ReplyLocalized ReplyMode = "localized"
)

// Greeting is the fixed greeting returned by Greet and the / route.
const Greeting = "Hello! I'm your travel assistant by Atlast Tours & Travels. Where would you like to go?"

// defaultPersona frames every prompt sent to the completion provider.
const defaultPersona = "You are a fun, expert travel assistant for Atlast Tours.\n" +
	"Reply in short bullet points. Be exciting!"

// Fallback replies, one per completion failure kind. Always literal,
// pre-written strings; raw provider errors never reach the user.
const (
	fallbackGeneric     = "I'm planning your perfect trip! Try again in 10 sec"
	fallbackRateLimited = "So many travellers today! Give me a few seconds and ask again."
	fallbackSafety      = "Let's keep it about travel! Where would you like to go?"
)

// Assistant orchestrates one conversation: it normalizes the user's language,
// keeps bilingual state coherent through the canonical-English memory, calls
// the completion provider and localizes the reply when configured to.
//
// Handle never returns an error; every failure degrades to a fixed reply.
type Assistant struct {
	normalizer *language.Normalizer
	pool       *translate.Pool
	completion CompletionProvider
	conv       *memory.Conversation
	mode       ReplyMode
	persona    string
	logger     *logrus.Logger
}

// Config holds construction parameters for an Assistant.
type Config struct {
	Normalizer *language.Normalizer
	Pool       *translate.Pool
	Completion CompletionProvider
	// Window is the conversation window size; non-positive uses the default.
	Window int
	// Mode defaults to ReplyLocalized.
	Mode ReplyMode
	// Persona overrides the prompt preamble when non-empty.
	Persona string
	Logger  *logrus.Logger
}

// NewAssistant creates an Assistant owning a fresh Conversation.
func NewAssistant(cfg Config) *Assistant {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Normalizer == nil {
		var remote language.RemoteDetector
		if cfg.Pool != nil {
			remote = cfg.Pool
		}
		cfg.Normalizer = language.NewNormalizer(nil, nil, remote, cfg.Logger)
	}
	if cfg.Mode == "" {
		cfg.Mode = ReplyLocalized
	}
	if cfg.Persona == "" {
		cfg.Persona = defaultPersona
	}

	return &Assistant{
		normalizer: cfg.Normalizer,
		pool:       cfg.Pool,
		completion: cfg.Completion,
		conv:       memory.NewConversation(cfg.Window),
		mode:       cfg.Mode,
		persona:    cfg.Persona,
		logger:     cfg.Logger,
	}
}

// Greet returns the fixed greeting.
func (a *Assistant) Greet() string {
	return Greeting
}

// Conversation exposes the assistant's memory, mainly for tests and metrics.
func (a *Assistant) Conversation() *memory.Conversation {
	return a.conv
}

// Handle processes one user message and returns the user-facing reply.
//
// Pipeline: normalize language, translate the message to English, append the
// user turn, prompt the completion provider with the recent context, then
// localize the reply if the user wrote in a supported non-English language.
// Memory always stores the English form of both turns. On completion failure
// the reply is a fixed apology and memory keeps only the user turn for the
// next attempt at context.
func (a *Assistant) Handle(ctx context.Context, userText string) string {
	lang := a.normalizer.Normalize(ctx, userText)

	userEn := userText
	if lang != language.English {
		userEn = a.pool.Translate(ctx, userText, string(lang), string(language.English))
	}

	a.conv.Append(memory.Turn{
		Role: memory.SpeakerUser,
		Text: userEn,
		Lang: language.English,
	})

	prompt := a.buildPrompt()

	replyEn, err := a.completion.Complete(ctx, prompt)
	if err != nil {
		fallback := a.fallbackFor(err)
		a.logger.WithError(err).WithFields(logrus.Fields{
			"provider": a.completion.Name(),
			"lang":     lang,
		}).Error("Completion failed, returning fallback reply")
		completionsTotal.WithLabelValues(a.completion.Name(), "error").Inc()
		// Fallbacks stay in English: chaining a translation onto a failure
		// path helps nobody when providers are already misbehaving.
		return fallback
	}
	completionsTotal.WithLabelValues(a.completion.Name(), "success").Inc()

	a.conv.Append(memory.Turn{
		Role: memory.SpeakerAssistant,
		Text: replyEn,
		Lang: language.English,
	})

	return a.localize(ctx, replyEn, lang)
}

// localize converts English reply text to the user's language when the
// configured mode asks for it.
func (a *Assistant) localize(ctx context.Context, replyEn string, lang language.Code) string {
	if a.mode != ReplyLocalized || lang == language.English {
		return replyEn
	}
	return a.pool.Translate(ctx, replyEn, string(language.English), string(lang))
}

// buildPrompt composes the persona preamble and the recent canonical-language
// context into one prompt string.
func (a *Assistant) buildPrompt() string {
	var b strings.Builder
	b.WriteString(a.persona)
	b.WriteString("\n\n")

	for _, turn := range a.conv.Recent(0) {
		switch turn.Role {
		case memory.SpeakerUser:
			b.WriteString("User: ")
		case memory.SpeakerAssistant:
			b.WriteString("Assistant: ")
		}
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// fallbackFor maps a completion failure to its literal apology string.
func (a *Assistant) fallbackFor(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return fallbackRateLimited
	case errors.Is(err, ErrSafetyBlocked):
		return fallbackSafety
	default:
		return fallbackGeneric
	}
}
