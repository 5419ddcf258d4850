package language

// Code is an ISO 639-1 language code from the assistant's supported set.
type Code string

const (
	// English is the canonical language. Conversation context and persisted
	// exchanges are always kept in English regardless of the user-facing language.
	English Code = "en"
	// Hindi is the most common non-English language for our traffic.
	Hindi Code = "hi"
	// Marathi language code.
	Marathi Code = "mr"
	// Tamil language code.
	Tamil Code = "ta"
	// Telugu language code.
	Telugu Code = "te"
	// Bengali language code.
	Bengali Code = "bn"
	// Gujarati language code.
	Gujarati Code = "gu"
	// Kannada language code.
	Kannada Code = "kn"
)

// DefaultSupported returns the default supported language set.
// The canonical language is always a member.
func DefaultSupported() []Code {
	return []Code{English, Hindi, Marathi, Tamil, Telugu, Bengali, Gujarati, Kannada}
}

// ParseCode normalizes a raw language string ("EN", "hi-IN") to a bare
// lowercase ISO 639-1 code. It does not check membership in the supported set.
func ParseCode(s string) Code {
	lang := make([]byte, 0, 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' || c == '_' {
			break
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lang = append(lang, c)
	}
	return Code(lang)
}
