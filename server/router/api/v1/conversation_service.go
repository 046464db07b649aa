package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/followup/plugin/ai"
	"github.com/hrygo/followup/plugin/ai/conversation"
	apperrors "github.com/hrygo/followup/server/internal/errors"
	"github.com/hrygo/followup/server/internal/observability"
)

// CreateContactRequest is the body of POST /contacts.
type CreateContactRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Category string `json:"category"`
}

// CreateMessageRequest is the body of POST /messages.
// Timestamp accepts any shape the time normalizer understands; absent means now.
type CreateMessageRequest struct {
	ContactID   string `json:"contactId"`
	Content     string `json:"content"`
	Direction   string `json:"direction"`
	AIGenerated bool   `json:"aiGenerated"`
	Category    string `json:"category"`
	Timestamp   any    `json:"timestamp"`
}

// CreateMessageResponse reports the stored message and the contact's new state.
type CreateMessageResponse struct {
	Message      *conversation.Message      `json:"message"`
	OpenLoop     *conversation.OpenLoop     `json:"openLoop,omitempty"`
	PendingReply *conversation.PendingReply `json:"pendingReply,omitempty"`
	// Responded is set when an outbound message answered a sent reminder.
	Responded bool `json:"responded"`
}

// DraftReplyRequest is the body of POST /contacts/:contactId/draft.
type DraftReplyRequest struct {
	Instruction string `json:"instruction"`
}

// CreateContact adds a contact.
// POST /api/v1/contacts
func (s *APIV1Service) CreateContact(c echo.Context) error {
	var req CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	contact, err := s.Conversations.CreateContact(c.Request().Context(), currentUser(c), conversation.Contact{
		ID:       req.ID,
		Name:     req.Name,
		Platform: req.Platform,
		Category: req.Category,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, contact)
}

// ListContacts lists the caller's contacts.
// GET /api/v1/contacts
func (s *APIV1Service) ListContacts(c echo.Context) error {
	contacts, err := s.Conversations.ListContacts(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contacts)
}

// CreateMessage appends a message, feeds conversation memory, credits any reminder
// the message answers and returns the contact's classification.
// POST /api/v1/messages
func (s *APIV1Service) CreateMessage(c echo.Context) error {
	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := currentUser(c)
	logger := observability.LoggerFrom(ctx)

	now := s.clock()
	createdAt := now
	if req.Timestamp != nil {
		ts, ok := s.Normalizer.TryNormalize(req.Timestamp)
		if !ok {
			// Unparsable timestamps fall back to now rather than rejecting the message.
			logger.Warn("unrecognized message timestamp, using now", "timestamp", req.Timestamp)
		} else {
			createdAt = ts
		}
	}

	msg, err := s.Conversations.AppendMessage(ctx, userID, conversation.Message{
		ContactID:   req.ContactID,
		Content:     req.Content,
		Direction:   conversation.Direction(req.Direction),
		AIGenerated: req.AIGenerated,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return err
	}

	resp := &CreateMessageResponse{Message: msg}
	if s.Memory != nil && strings.TrimSpace(msg.Content) != "" {
		if _, err := s.Memory.Record(ctx, userID, msg.ContactID, msg.Content, req.Category, msg.CreatedAt); err != nil {
			logger.Warn("failed to record conversation memory", observability.LogFieldContactID, msg.ContactID, "error", err)
		}
	}
	if msg.Direction == conversation.DirectionOutbound && s.Reminders != nil {
		responded, err := s.Reminders.RecordResponse(ctx, userID, msg.ContactID, msg.CreatedAt)
		if err != nil {
			logger.Warn("failed to record reminder response", observability.LogFieldContactID, msg.ContactID, "error", err)
		}
		resp.Responded = responded
	}

	contact, err := s.Conversations.GetContact(ctx, userID, msg.ContactID)
	if err != nil {
		return err
	}
	history, err := s.Conversations.ListMessages(ctx, userID, msg.ContactID)
	if err != nil {
		return err
	}
	loop, pending, err := s.Classifier.ClassifyContact(*contact, history, now)
	if err != nil {
		logger.Warn("failed to classify contact", observability.LogFieldContactID, msg.ContactID, "error", err)
	}
	resp.OpenLoop, resp.PendingReply = loop, pending
	return c.JSON(http.StatusCreated, resp)
}

// GetDashboard classifies all of the caller's conversations.
// GET /api/v1/dashboard
func (s *APIV1Service) GetDashboard(c echo.Context) error {
	contacts, messages, err := s.Conversations.Load(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Classifier.Classify(contacts, messages, s.clock()))
}

// Scan runs the reminder scan for the caller. force=true ignores the unchanged-data shortcut.
// POST /api/v1/scan
func (s *APIV1Service) Scan(c echo.Context) error {
	if s.Scanner == nil {
		return apperrors.ServiceUnavailable("scanner is not configured")
	}
	userID := currentUser(c)
	if force, _ := strconv.ParseBool(c.QueryParam("force")); force && s.Integrator != nil {
		s.Integrator.Reset(userID)
	}
	result, err := s.Scanner.ScanUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// DraftReply suggests a reply to a contact.
// POST /api/v1/contacts/:contactId/draft
func (s *APIV1Service) DraftReply(c echo.Context) error {
	if !s.Drafter.Enabled() {
		return ai.ErrDraftingDisabled
	}
	var req DraftReplyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := currentUser(c)
	contactID := c.Param("contactId")

	contact, err := s.Conversations.GetContact(ctx, userID, contactID)
	if err != nil {
		return err
	}
	messages, err := s.Conversations.ListMessages(ctx, userID, contactID)
	if err != nil {
		return err
	}
	draftReq := ai.DraftRequest{ContactName: contact.Name, Messages: messages, Instruction: req.Instruction}
	if s.Memory != nil {
		if mem, err := s.Memory.Get(ctx, userID, contactID); err == nil {
			draftReq.Memory = mem
		}
	}

	draftCtx, cancel := contextWithTimeout(c, 30*time.Second)
	defer cancel()
	reply, err := s.Drafter.Draft(draftCtx, draftReq)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "reply drafting failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"draft": reply})
}

// GetMemory returns the conversation memory with a contact.
// GET /api/v1/memory/:contactId
func (s *APIV1Service) GetMemory(c echo.Context) error {
	mem, err := s.Memory.Get(c.Request().Context(), currentUser(c), c.Param("contactId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mem)
}

// SearchMemory searches remembered interactions.
// GET /api/v1/memory/:contactId/search?q=&limit=
func (s *APIV1Service) SearchMemory(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	entries, err := s.Memory.Search(c.Request().Context(), currentUser(c), c.Param("contactId"), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// RelevantMemories ranks remembered interactions against a context text.
// GET /api/v1/memory/:contactId/relevant?context=&limit=
func (s *APIV1Service) RelevantMemories(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	entries, err := s.Memory.RelevantMemories(c.Request().Context(), currentUser(c), c.Param("contactId"), c.QueryParam("context"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
