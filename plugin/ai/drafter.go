package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/memory"
)

// ErrDraftingDisabled is returned when no LLM is configured.
var ErrDraftingDisabled = errors.New("reply drafting is not enabled")

const draftSystemPrompt = `You help the user reply to people they have left waiting.
Write one short reply in the user's voice. Match the contact's tone.
Answer any open question directly. Do not invent facts or commitments.
Return only the reply text.`

// maxDraftHistory bounds how many recent messages go into the prompt.
const maxDraftHistory = 12

// DraftRequest is the context a reply is drafted from.
type DraftRequest struct {
	ContactName string
	// Messages is the conversation, oldest first. Inbound messages are the contact's.
	Messages []conversation.Message
	// Memory, when set, contributes topics and pending items.
	Memory *memory.ConversationMemory
	// Instruction is an optional user hint ("decline politely").
	Instruction string
}

// Drafter suggests replies through an LLM. A nil LLM disables drafting.
type Drafter struct {
	llm    LLMService
	logger *slog.Logger
}

// NewDrafter creates a drafter.
func NewDrafter(llm LLMService) *Drafter {
	return &Drafter{llm: llm, logger: slog.Default()}
}

// Enabled reports whether drafting is available.
func (d *Drafter) Enabled() bool {
	return d != nil && d.llm != nil
}

// Draft returns a suggested reply.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (string, error) {
	if !d.Enabled() {
		return "", ErrDraftingDisabled
	}
	if len(req.Messages) == 0 {
		return "", errors.New("no messages to reply to")
	}

	history := req.Messages
	if len(history) > maxDraftHistory {
		history = history[len(history)-maxDraftHistory:]
	}
	chat := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Direction == conversation.DirectionOutbound {
			chat = append(chat, AssistantMessage(m.Content))
		} else {
			chat = append(chat, UserMessage(m.Content))
		}
	}

	reply, err := d.llm.Chat(ctx, FormatMessages(draftSystemPrompt, buildDraftPrompt(req), chat))
	if err != nil {
		d.logger.Warn("reply drafting failed", "contact", req.ContactName, "error", err)
		return "", fmt.Errorf("failed to draft reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func buildDraftPrompt(req DraftRequest) string {
	var sb strings.Builder
	name := req.ContactName
	if name == "" {
		name = "the contact"
	}
	fmt.Fprintf(&sb, "Draft my reply to %s.", name)

	if req.Memory != nil {
		s := req.Memory.Summary
		if len(s.KeyTopics) > 0 {
			fmt.Fprintf(&sb, "\nRecurring topics: %s.", strings.Join(s.KeyTopics, ", "))
		}
		if s.CommunicationStyle != "" {
			fmt.Fprintf(&sb, "\nTheir style: %s.", s.CommunicationStyle)
		}
		if len(s.PendingItems) > 0 {
			fmt.Fprintf(&sb, "\nStill open: %s", strings.Join(s.PendingItems, "; "))
		}
	}
	if req.Instruction != "" {
		fmt.Fprintf(&sb, "\nInstruction: %s", req.Instruction)
	}
	return sb.String()
}
