package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/memory"
)

type fakeLLM struct {
	reply    string
	err      error
	received []Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []Message) (string, error) {
	f.received = messages
	return f.reply, f.err
}

func TestDrafterDisabled(t *testing.T) {
	var nilDrafter *Drafter
	assert.False(t, nilDrafter.Enabled())

	_, err := NewDrafter(nil).Draft(context.Background(), DraftRequest{})
	assert.ErrorIs(t, err, ErrDraftingDisabled)
}

func TestDrafterBuildsPrompt(t *testing.T) {
	llm := &fakeLLM{reply: "\nHappy to, sending it tonight.\n"}
	d := NewDrafter(llm)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	reply, err := d.Draft(context.Background(), DraftRequest{
		ContactName: "Ana",
		Messages: []conversation.Message{
			{Direction: conversation.DirectionOutbound, Content: "Here is the draft.", CreatedAt: base},
			{Direction: conversation.DirectionInbound, Content: "Can you send the final deck?", CreatedAt: base.Add(time.Hour)},
		},
		Memory: &memory.ConversationMemory{Summary: memory.ContextSummary{
			KeyTopics:          []string{"deck", "launch"},
			CommunicationStyle: "brief",
			PendingItems:       []string{"send the final deck"},
		}},
		Instruction: "keep it short",
	})
	require.NoError(t, err)
	assert.Equal(t, "Happy to, sending it tonight.", reply)

	require.Len(t, llm.received, 4)
	assert.Equal(t, "system", llm.received[0].Role)
	assert.Equal(t, AssistantMessage("Here is the draft."), llm.received[1])
	assert.Equal(t, UserMessage("Can you send the final deck?"), llm.received[2])

	prompt := llm.received[3].Content
	assert.Contains(t, prompt, "Draft my reply to Ana.")
	assert.Contains(t, prompt, "deck, launch")
	assert.Contains(t, prompt, "Their style: brief.")
	assert.Contains(t, prompt, "send the final deck")
	assert.Contains(t, prompt, "Instruction: keep it short")
}

func TestDrafterTrimsHistory(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	var msgs []conversation.Message
	for i := 0; i < 20; i++ {
		msgs = append(msgs, conversation.Message{Direction: conversation.DirectionInbound, Content: fmt.Sprintf("m%d", i)})
	}
	_, err := NewDrafter(llm).Draft(context.Background(), DraftRequest{Messages: msgs})
	require.NoError(t, err)

	// system + history + prompt
	require.Len(t, llm.received, maxDraftHistory+2)
	assert.Equal(t, "m8", llm.received[1].Content)
	assert.Contains(t, llm.received[len(llm.received)-1].Content, "the contact")
}

func TestDrafterErrors(t *testing.T) {
	d := NewDrafter(&fakeLLM{err: errors.New("quota")})
	_, err := d.Draft(context.Background(), DraftRequest{})
	assert.ErrorContains(t, err, "no messages")

	_, err = d.Draft(context.Background(), DraftRequest{Messages: []conversation.Message{{Content: "hi"}}})
	assert.ErrorContains(t, err, "quota")
}
