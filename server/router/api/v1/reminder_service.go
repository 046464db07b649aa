package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/followup/plugin/ai/reminder"
	apperrors "github.com/hrygo/followup/server/internal/errors"
)

// CreateReminderRequest is the body of POST /reminders.
type CreateReminderRequest struct {
	ContactID    string         `json:"contactId"`
	ContactName  string         `json:"contactName"`
	Message      string         `json:"message"`
	Type         string         `json:"type"`
	Priority     string         `json:"priority"`
	ScheduledFor any            `json:"scheduledFor"`
	Metadata     map[string]any `json:"metadata"`
}

// CreateFollowupRequest is the body of POST /followups.
type CreateFollowupRequest struct {
	ContactID    string `json:"contactId"`
	ContactName  string `json:"contactName"`
	Message      string `json:"message"`
	ScheduledFor any    `json:"scheduledFor"`
}

// ResendResponse reports per-channel delivery of a re-send.
type ResendResponse struct {
	Delivery map[reminder.Channel]bool `json:"delivery"`
}

// ListReminders lists the caller's reminders, optionally by status.
// GET /api/v1/reminders?status=
func (s *APIV1Service) ListReminders(c echo.Context) error {
	list, err := s.Reminders.List(c.Request().Context(), currentUser(c), reminder.ReminderStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// CreateReminder creates a reminder, delivered now or at scheduledFor.
// POST /api/v1/reminders
func (s *APIV1Service) CreateReminder(c echo.Context) error {
	var req CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	scheduledFor, err := s.parseTime(req.ScheduledFor, "scheduledFor")
	if err != nil {
		return err
	}
	r, err := s.Reminders.CreateReminder(c.Request().Context(), &reminder.CreateReminderRequest{
		UserID:       currentUser(c),
		ContactID:    req.ContactID,
		ContactName:  req.ContactName,
		Message:      req.Message,
		Type:         reminder.ReminderType(req.Type),
		Priority:     reminder.Priority(req.Priority),
		ScheduledFor: scheduledFor,
		Metadata:     req.Metadata,
	})
	if err != nil {
		if r != nil && r.Status == reminder.StatusFailed {
			return apperrors.PersistenceFailed("failed to save reminder", err)
		}
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

// DismissReminder dismisses a pending reminder.
// POST /api/v1/reminders/:id/dismiss
func (s *APIV1Service) DismissReminder(c echo.Context) error {
	r, err := s.Reminders.Dismiss(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// ResendReminder re-delivers a sent reminder.
// POST /api/v1/reminders/:id/resend
func (s *APIV1Service) ResendReminder(c echo.Context) error {
	results, err := s.Reminders.Resend(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	if len(results) > 0 && !anyDelivered(results) {
		return apperrors.DeliveryFailed("no channel accepted the reminder").
			WithContext("delivery", results)
	}
	return c.JSON(http.StatusOK, ResendResponse{Delivery: results})
}

// DeleteReminder removes a reminder.
// DELETE /api/v1/reminders/:id
func (s *APIV1Service) DeleteReminder(c echo.Context) error {
	if err := s.Reminders.Delete(c.Request().Context(), currentUser(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearReminders removes all of the caller's reminders.
// DELETE /api/v1/reminders
func (s *APIV1Service) ClearReminders(c echo.Context) error {
	removed, err := s.Reminders.ClearAll(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

// ListNotifications lists in-app notifications, newest first.
// GET /api/v1/notifications?limit=
func (s *APIV1Service) ListNotifications(c echo.Context) error {
	if s.Notifications == nil {
		return c.JSON(http.StatusOK, []*reminder.AppNotification{})
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	if limit == 0 {
		limit = 50
	}
	list, err := s.Notifications.ListNotifications(c.Request().Context(), currentUser(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// ListFollowups lists scheduled followups, optionally by status.
// GET /api/v1/followups?status=
func (s *APIV1Service) ListFollowups(c echo.Context) error {
	list, err := s.Followups.ListFollowups(c.Request().Context(), currentUser(c), reminder.FollowupStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// CreateFollowup schedules a followup.
// POST /api/v1/followups
func (s *APIV1Service) CreateFollowup(c echo.Context) error {
	var req CreateFollowupRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	at, err := s.parseTime(req.ScheduledFor, "scheduledFor")
	if err != nil {
		return err
	}
	if at == nil {
		return apperrors.InvalidArgument("scheduledFor is required")
	}
	fu, err := s.Followups.CreateFollowup(c.Request().Context(), currentUser(c), req.ContactID, req.ContactName, *at, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, fu)
}

// CancelFollowup cancels a pending followup.
// POST /api/v1/followups/:id/cancel
func (s *APIV1Service) CancelFollowup(c echo.Context) error {
	fu, err := s.Followups.CancelFollowup(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fu)
}

// ListEffectiveness returns effectiveness stats for every tracked contact.
// GET /api/v1/effectiveness
func (s *APIV1Service) ListEffectiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Tracker.All())
}

// GetEffectiveness returns effectiveness stats for one contact.
// GET /api/v1/effectiveness/:contactId
func (s *APIV1Service) GetEffectiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Tracker.Stats(c.Param("contactId")))
}

// GetSettings returns the caller's reminder settings.
// GET /api/v1/settings
func (s *APIV1Service) GetSettings(c echo.Context) error {
	settings, err := s.Settings.GetSettings(c.Request().Context(), currentUser(c))
	if err != nil {
		return apperrors.PersistenceFailed("failed to load settings", err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings replaces the caller's reminder settings.
// PUT /api/v1/settings
func (s *APIV1Service) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUser(c)
	current, err := s.Settings.GetSettings(ctx, userID)
	if err != nil {
		return apperrors.PersistenceFailed("failed to load settings", err)
	}
	// Fields absent from the body keep their current values.
	if err := c.Bind(&current); err != nil {
		return err
	}
	saved, err := s.Settings.SaveSettings(ctx, userID, current)
	if err != nil {
		return apperrors.PersistenceFailed("failed to save settings", err)
	}
	if s.Integrator != nil {
		// Thresholds may have changed; the next scan must not be skipped.
		s.Integrator.Reset(userID)
	}
	return c.JSON(http.StatusOK, saved)
}

func anyDelivered(results map[reminder.Channel]bool) bool {
	for _, ok := range results {
		if ok {
			return true
		}
	}
	return false
}
