package translate

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrUnsupportedLanguage is returned for language codes a translator cannot serve.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Translator turns text into the target language. Implementations may be
// slow or fail; callers normally go through Fallback.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Language codes understood by the bundled phrasebook.
const (
	English  = "en"
	Hindi    = "hi"
	Marathi  = "mr"
	French   = "fr"
	Spanish  = "es"
	German   = "de"
	Chinese  = "zh"
	Japanese = "ja"
)

// Names maps language codes to display names.
var Names = map[string]string{
	English:  "English",
	Hindi:    "हिंदी (Hindi)",
	Marathi:  "मराठी (Marathi)",
	French:   "Français (French)",
	Spanish:  "Español (Spanish)",
	German:   "Deutsch (German)",
	Chinese:  "中文 (Chinese)",
	Japanese: "日本語 (Japanese)",
}

// Supported reports whether lang is a known language code.
func Supported(lang string) bool {
	_, ok := Names[lang]
	return ok
}

type phrase struct {
	re          *regexp.Regexp
	replacement string
}

// Phrasebook is an offline translator backed by a fixed phrase table.
// English and unknown targets return the text unchanged. When no phrase
// matches, the text is returned with a "[Translated to ...]" marker.
type Phrasebook struct {
	tables map[string][]phrase
}

// NewPhrasebook builds the bundled phrase tables.
func NewPhrasebook() *Phrasebook {
	p := &Phrasebook{tables: make(map[string][]phrase)}
	for lang, pairs := range phrases {
		for _, pair := range pairs {
			p.tables[lang] = append(p.tables[lang], phrase{
				re:          phrasePattern(pair[0]),
				replacement: pair[1],
			})
		}
	}
	return p
}

func phrasePattern(s string) *regexp.Regexp {
	pattern := `(?i)\b` + regexp.QuoteMeta(s)
	if last := s[len(s)-1]; isWordByte(last) {
		pattern += `\b`
	}
	return regexp.MustCompile(pattern)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func (p *Phrasebook) Translate(ctx context.Context, text, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	table, ok := p.tables[lang]
	if !ok {
		return text, nil
	}
	out := text
	for _, ph := range table {
		out = ph.re.ReplaceAllLiteralString(out, ph.replacement)
	}
	if out == text {
		out = text + " [Translated to " + Names[lang] + "]"
	}
	return out, nil
}

// Detect guesses the language of text from its script, defaulting to English.
func Detect(text string) string {
	switch {
	case devanagari.MatchString(text):
		return Hindi
	case han.MatchString(text):
		return Chinese
	case kana.MatchString(text):
		return Japanese
	case strings.ContainsAny(strings.ToLower(text), "àâäéèêëïîôöùûüÿç"):
		return French
	case strings.ContainsAny(strings.ToLower(text), "äöüß"):
		return German
	case strings.ContainsAny(strings.ToLower(text), "ñáéíóúü"):
		return Spanish
	}
	return English
}

var (
	devanagari = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	han        = regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`)
	kana       = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`)
)
