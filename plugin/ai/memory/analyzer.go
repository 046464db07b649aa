package memory

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hrygo/followup/plugin/ai/inquiry"
)

var (
	wordPattern    = regexp.MustCompile(`[a-z][a-z']+`)
	urgentPattern  = regexp.MustCompile(`(?i)\b(asap|urgent|urgently|immediately|today|deadline|right away)\b`)
	stopWords      = toSet("the", "and", "for", "that", "this", "with", "you", "your", "are", "was", "were", "have", "has", "had", "but", "not", "from", "they", "them", "will", "would", "could", "should", "what", "when", "where", "which", "about", "there", "their", "just", "like", "then", "than", "been", "into", "also", "some", "can", "our", "out", "all", "any", "how", "who", "why", "its", "it's", "i'm", "let", "know", "thanks", "thank", "hey", "hello", "please")
	positiveWords  = toSet("great", "good", "thanks", "thank", "love", "awesome", "excellent", "happy", "glad", "perfect", "nice", "appreciate", "wonderful", "excited", "congrats", "amazing")
	negativeWords  = toSet("bad", "sorry", "problem", "issue", "unfortunately", "angry", "upset", "disappointed", "late", "wrong", "fail", "failed", "broken", "annoyed", "terrible", "frustrated")
	concernedWords = toSet("worried", "concerned", "concern", "anxious", "nervous", "unsure", "afraid")
)

// Analyzer derives a MemoryEntry from raw message text.
type Analyzer struct {
	detector *inquiry.Detector
}

// NewAnalyzer creates an analyzer backed by the question detector.
func NewAnalyzer(detector *inquiry.Detector) *Analyzer {
	if detector == nil {
		detector = inquiry.NewDetector()
	}
	return &Analyzer{detector: detector}
}

// Analyze builds an entry for content received or sent at ts.
func (a *Analyzer) Analyze(content, category string, ts time.Time) MemoryEntry {
	lower := strings.ToLower(content)
	words := wordPattern.FindAllString(lower, -1)
	sentiment := scoreSentiment(words)

	return MemoryEntry{
		Content:            content,
		Timestamp:          ts,
		Sentiment:          sentiment,
		Topics:             extractTopics(words, 5),
		EmotionalContext:   emotionalContext(words, content, sentiment),
		Urgency:            a.urgency(content),
		Category:           category,
		ActionItems:        a.detector.RequestSentences(content),
		CommunicationStyle: communicationStyle(content),
	}
}

func (a *Analyzer) urgency(content string) string {
	switch {
	case urgentPattern.MatchString(content):
		return "high"
	case a.detector.IsQuestionOrRequest(content):
		return "medium"
	default:
		return "low"
	}
}

func scoreSentiment(words []string) float64 {
	pos, neg := 0, 0
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

func emotionalContext(words []string, content string, sentiment float64) string {
	for _, w := range words {
		if _, ok := concernedWords[w]; ok {
			return "concerned"
		}
	}
	switch {
	case sentiment > 0.3 && strings.Contains(content, "!"):
		return "excited"
	case sentiment > 0.3:
		return "positive"
	case sentiment < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}

func extractTopics(words []string, limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range words {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	if order == nil {
		return []string{}
	}
	return order
}

func communicationStyle(content string) string {
	trimmed := strings.TrimSpace(content)
	switch {
	case len(trimmed) == 0:
		return "neutral"
	case strings.Count(trimmed, "!") >= 2:
		return "enthusiastic"
	case strings.HasSuffix(trimmed, "?"):
		return "inquisitive"
	case len(trimmed) < 40:
		return "brief"
	case len(trimmed) > 280:
		return "detailed"
	default:
		return "conversational"
	}
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
