package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/followup/plugin/ai/contract"
)

// CreateContractRequest is the body of POST /contracts.
// DaysOfWeek uses 0 for Sunday; empty allows every day.
type CreateContractRequest struct {
	ContactID   string `json:"contactId"`
	ContactName string `json:"contactName"`
	Frequency   string `json:"frequency"`
	TimeOfDay   string `json:"timeOfDay"`
	DaysOfWeek  []int  `json:"daysOfWeek"`
}

// ListContracts lists the caller's contracts, optionally by status.
// GET /api/v1/contracts?status=
func (s *APIV1Service) ListContracts(c echo.Context) error {
	list, err := s.Contracts.List(c.Request().Context(), currentUser(c), contract.Status(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// CreateContract creates a recurring check-in contract.
// POST /api/v1/contracts
func (s *APIV1Service) CreateContract(c echo.Context) error {
	var req CreateContractRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := currentUser(c)

	name := req.ContactName
	if name == "" && s.Conversations != nil {
		if contact, err := s.Conversations.GetContact(ctx, userID, req.ContactID); err == nil {
			name = contact.Name
		}
	}
	days := make([]time.Weekday, 0, len(req.DaysOfWeek))
	for _, d := range req.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}

	created, err := s.Contracts.Create(ctx, contract.CreateContractRequest{
		UserID:      userID,
		ContactID:   req.ContactID,
		ContactName: name,
		Frequency:   req.Frequency,
		TimeOfDay:   req.TimeOfDay,
		DaysOfWeek:  days,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// PauseContract pauses an active contract.
// POST /api/v1/contracts/:id/pause
func (s *APIV1Service) PauseContract(c echo.Context) error {
	return s.contractTransition(c, s.Contracts.Pause)
}

// ResumeContract resumes a paused contract.
// POST /api/v1/contracts/:id/resume
func (s *APIV1Service) ResumeContract(c echo.Context) error {
	return s.contractTransition(c, s.Contracts.Resume)
}

// CompleteContract ends a contract.
// POST /api/v1/contracts/:id/complete
func (s *APIV1Service) CompleteContract(c echo.Context) error {
	return s.contractTransition(c, s.Contracts.Complete)
}

type contractTransitionFunc func(ctx context.Context, userID int32, id string) (*contract.Contract, error)

func (s *APIV1Service) contractTransition(c echo.Context, fn contractTransitionFunc) error {
	updated, err := fn(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}
