package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ecoroute/internal/intake"
	"ecoroute/internal/notify"
	"ecoroute/internal/request"
	"ecoroute/internal/session"
	"ecoroute/internal/upload"
)

// Submitter runs an intake submission. *intake.Pipeline satisfies it.
type Submitter interface {
	Submit(ctx context.Context, s intake.Submission) intake.Result
}

// PhotoReceiver parses an upload form. *upload.Receiver satisfies it.
type PhotoReceiver interface {
	Receive(w http.ResponseWriter, r *http.Request) (*upload.Form, error)
}

// IntakeHandler accepts photo submissions from reporters.
type IntakeHandler struct {
	receiver PhotoReceiver
	pipeline Submitter
}

// NewIntakeHandler creates a new intake handler.
func NewIntakeHandler(receiver PhotoReceiver, pipeline Submitter) *IntakeHandler {
	return &IntakeHandler{receiver: receiver, pipeline: pipeline}
}

// Garbage handles POST /requests/garbage
func (h *IntakeHandler) Garbage(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, request.KindGarbage)
}

// Recyclable handles POST /requests/recyclable
func (h *IntakeHandler) Recyclable(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, request.KindRecyclable)
}

func (h *IntakeHandler) submit(w http.ResponseWriter, r *http.Request, kind request.Kind) {
	reporter, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	form, err := h.receiver.Receive(w, r)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		case errors.Is(err, upload.ErrMalformed):
			writeError(w, http.StatusBadRequest, "invalid upload form")
		default:
			zap.L().Error("failed to receive upload", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to receive upload")
		}
		return
	}

	sub := intake.Submission{
		Reporter:  reporter,
		Kind:      kind,
		Latitude:  form.Latitude,
		Longitude: form.Longitude,
	}
	if form.Photo != nil {
		sub.Photo = notify.Photo(form.Photo)
	}
	// Only garbage reports accept a manual address.
	if kind == request.KindGarbage {
		sub.ManualAddress = form.ManualAddress
	}

	result := h.pipeline.Submit(r.Context(), sub)
	writeJSON(w, statusForOutcome(result.Outcome), result)
}

// statusForOutcome maps a pipeline outcome to an HTTP status. A saved request
// whose notification failed is still a success; the body carries notified=false.
func statusForOutcome(o intake.Outcome) int {
	switch o {
	case intake.OutcomeAccepted, intake.OutcomeNotificationFailed:
		return http.StatusOK
	case intake.OutcomeInvalid:
		return http.StatusBadRequest
	case intake.OutcomeResolutionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
