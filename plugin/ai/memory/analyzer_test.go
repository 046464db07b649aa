package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzer_Analyze(t *testing.T) {
	a := NewAnalyzer(nil)

	e := a.Analyze("Great news on the launch! Please send the launch budget ASAP.", "work", testNow)
	assert.Equal(t, "high", e.Urgency)
	assert.Equal(t, "work", e.Category)
	assert.Equal(t, testNow, e.Timestamp)
	assert.Equal(t, "launch", e.Topics[0])
	assert.Contains(t, e.Topics, "budget")
	assert.Equal(t, []string{"Please send the launch budget ASAP"}, e.ActionItems)
	assert.Greater(t, e.Sentiment, 0.0)
	assert.Equal(t, "excited", e.EmotionalContext)

	e = a.Analyze("When can we meet?", "", testNow)
	assert.Equal(t, "medium", e.Urgency)
	assert.Equal(t, "inquisitive", e.CommunicationStyle)
	assert.Equal(t, "neutral", e.EmotionalContext)

	e = a.Analyze("I'm a bit worried about the timeline", "", testNow)
	assert.Equal(t, "concerned", e.EmotionalContext)
	assert.Equal(t, "low", e.Urgency)
	assert.Equal(t, "brief", e.CommunicationStyle)

	e = a.Analyze("Sorry, the build failed again", "", testNow)
	assert.Less(t, e.Sentiment, 0.0)
	assert.Equal(t, "negative", e.EmotionalContext)
}
