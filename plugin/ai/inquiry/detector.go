// Package inquiry detects questions and actionable requests in message text.
package inquiry

import (
	"regexp"
	"strings"
)

// Kind is the class of an outstanding ask.
type Kind string

const (
	// KindNone means the text carries no question or request.
	KindNone Kind = "none"

	// KindQuestion is an interrogative ("when are you free?").
	KindQuestion Kind = "question"

	// KindRequest is an action request ("please send the deck").
	KindRequest Kind = "request"
)

// Detector classifies text with cheap keyword heuristics.
// Same input always yields the same output.
type Detector struct {
	// Interrogatives that open a question
	interrogatives []string

	// Direct-ask phrases that open a question
	directAsks []string

	// Keywords that mark an action request anywhere in the text
	requestKeywords []string

	requestPattern *regexp.Regexp
}

// NewDetector creates a Detector with the default vocabulary.
func NewDetector() *Detector {
	d := &Detector{
		interrogatives: []string{
			"what", "when", "where", "who", "why", "how",
			"can", "could", "would", "will",
			"do", "does", "did",
			"is", "are", "was", "were",
		},
		directAsks: []string{
			"are you", "can you", "could you", "would you", "will you",
		},
		requestKeywords: []string{
			"please", "need", "want", "require",
			"looking for", "seeking",
			"help", "assist", "support",
			"advice", "suggestion", "recommendation",
		},
	}

	quoted := make([]string, 0, len(d.requestKeywords))
	for _, kw := range d.requestKeywords {
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(kw), " ", `\s+`))
	}
	d.requestPattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)

	return d
}

// Classify returns the kind of ask the text carries.
// Questions win over requests when both match.
func (d *Detector) Classify(text string) Kind {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return KindNone
	}
	lower := strings.ToLower(trimmed)

	if strings.HasSuffix(lower, "?") || d.startsWithAsk(lower) {
		return KindQuestion
	}
	if d.requestPattern.MatchString(lower) {
		return KindRequest
	}
	return KindNone
}

// IsQuestionOrRequest reports whether text is a question or an action request.
func (d *Detector) IsQuestionOrRequest(text string) bool {
	return d.Classify(text) != KindNone
}

// ExtractQuestions returns the texts flagged as questions or requests, in input order.
func (d *Detector) ExtractQuestions(texts []string) []string {
	var out []string
	for _, t := range texts {
		if d.IsQuestionOrRequest(t) {
			out = append(out, t)
		}
	}
	return out
}

// RequestSentences splits text into sentences and returns those carrying a request keyword.
func (d *Detector) RequestSentences(text string) []string {
	var out []string
	for _, s := range splitSentences(text) {
		if d.requestPattern.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}

func (d *Detector) startsWithAsk(lower string) bool {
	for _, phrase := range d.directAsks {
		if hasWordPrefix(lower, phrase) {
			return true
		}
	}
	first := firstWord(lower)
	for _, w := range d.interrogatives {
		if first == w {
			return true
		}
	}
	return false
}

func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	if len(s) == len(prefix) {
		return true
	}
	return !isWordByte(s[len(prefix)])
}

func firstWord(s string) string {
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	return s[:end]
}

func isWordByte(b byte) bool {
	return b == '\'' || b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

func splitSentences(text string) []string {
	var out []string
	for _, part := range sentenceSplit.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var defaultDetector = NewDetector()

// IsQuestionOrRequest reports whether text is a question or an action request.
func IsQuestionOrRequest(text string) bool {
	return defaultDetector.IsQuestionOrRequest(text)
}

// ExtractQuestions returns the texts flagged as questions or requests.
func ExtractQuestions(texts []string) []string {
	return defaultDetector.ExtractQuestions(texts)
}
