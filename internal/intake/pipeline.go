// Package intake runs a photo submission through center selection,
// address resolution, persistence and notification.
package intake

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ecoroute/internal/geo"
	"ecoroute/internal/identity"
	"ecoroute/internal/notify"
	"ecoroute/internal/request"
)

// Outcome classifies a submission result.
type Outcome string

const (
	OutcomeAccepted           Outcome = "accepted"
	OutcomeInvalid            Outcome = "invalid"
	OutcomeServerError        Outcome = "server_error"
	OutcomeResolutionFailed   Outcome = "resolution_failed"
	OutcomeNotificationFailed Outcome = "notification_failed"
)

// Reasons reported to the caller.
const (
	ReasonInvalidCoordinates = "invalid coordinates"
	ReasonNoFile             = "no file uploaded"
	ReasonNoCenters          = "no centers configured"
	ReasonCenterLookup       = "center lookup failed"
	ReasonResolution         = "could not resolve address"
	ReasonPersistence        = "failed to save request"
	ReasonNotification       = "request saved but notification failed"
)

// CenterLocator picks the nearest center of a kind. *geo.Registry satisfies it.
type CenterLocator interface {
	Nearest(kind geo.Kind, lat, lon float64) (geo.Center, error)
}

// AddressResolver turns coordinates into an address. *geocode.Resolver satisfies it.
type AddressResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (string, error)
}

// RequestStore persists requests. *request.Manager satisfies it.
type RequestStore interface {
	Create(ctx context.Context, input request.CreateInput) (*request.IntakeRequest, error)
}

// Notifier sends a notification and owns the photo from then on.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Send(ctx context.Context, n notify.Notification) notify.Outcome
}

// Submission is one reporter upload.
type Submission struct {
	Reporter      *identity.Identity
	Kind          request.Kind
	Latitude      float64
	Longitude     float64
	Photo         notify.Photo
	ManualAddress string
}

// Result is the combined outcome of a submission. Accepted is true once the
// request is persisted, regardless of notification.
type Result struct {
	Accepted  bool        `json:"accepted"`
	Notified  bool        `json:"notified"`
	Outcome   Outcome     `json:"outcome"`
	Address   string      `json:"address,omitempty"`
	RequestID uuid.UUID   `json:"request_id"`
	Center    *geo.Center `json:"center,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Pipeline orchestrates intake.
type Pipeline struct {
	centers  CenterLocator
	resolver AddressResolver
	store    RequestStore
	notifier Notifier
}

// NewPipeline creates a Pipeline.
func NewPipeline(centers CenterLocator, resolver AddressResolver, store RequestStore, notifier Notifier) *Pipeline {
	return &Pipeline{
		centers:  centers,
		resolver: resolver,
		store:    store,
		notifier: notifier,
	}
}

// SubmitGarbage submits a garbage report. manualAddress may be empty.
func (p *Pipeline) SubmitGarbage(ctx context.Context, reporter *identity.Identity, lat, lon float64, photo notify.Photo, manualAddress string) Result {
	return p.Submit(ctx, Submission{
		Reporter:      reporter,
		Kind:          request.KindGarbage,
		Latitude:      lat,
		Longitude:     lon,
		Photo:         photo,
		ManualAddress: manualAddress,
	})
}

// SubmitRecyclable submits a recyclable items report.
func (p *Pipeline) SubmitRecyclable(ctx context.Context, reporter *identity.Identity, lat, lon float64, photo notify.Photo) Result {
	return p.Submit(ctx, Submission{
		Reporter:  reporter,
		Kind:      request.KindRecyclable,
		Latitude:  lat,
		Longitude: lon,
		Photo:     photo,
	})
}

// Submit runs the pipeline. The photo is released exactly once: here on
// early exits, or by the notifier once it has been handed over.
func (p *Pipeline) Submit(ctx context.Context, s Submission) Result {
	handedOff := false
	defer func() {
		if !handedOff && s.Photo != nil {
			s.Photo.Release()
		}
	}()

	log := zap.L().With(zap.String("kind", string(s.Kind)))
	if s.Reporter != nil {
		log = log.With(zap.String("reporter_id", s.Reporter.ID.String()))
	}

	if s.Photo == nil {
		return invalid(ReasonNoFile)
	}
	if !geo.ValidCoordinates(s.Latitude, s.Longitude) {
		return invalid(ReasonInvalidCoordinates)
	}
	if s.Reporter == nil {
		return Result{Outcome: OutcomeServerError, Reason: "missing reporter"}
	}
	centerKind, ok := registryKind(s.Kind)
	if !ok {
		return invalid("unknown request kind")
	}

	var (
		center     geo.Center
		address    string
		resolveErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := p.centers.Nearest(centerKind, s.Latitude, s.Longitude)
		if err != nil {
			return err
		}
		center = c
		return nil
	})
	g.Go(func() error {
		address, resolveErr = p.resolver.Resolve(gctx, s.Latitude, s.Longitude)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("center lookup failed", zap.Error(err))
		reason := ReasonCenterLookup
		if errors.Is(err, geo.ErrNoCenters) {
			reason = ReasonNoCenters
		}
		return Result{Outcome: OutcomeServerError, Reason: reason}
	}

	resolved := resolveErr == nil
	if !resolved && s.ManualAddress == "" {
		log.Warn("address resolution failed", zap.Error(resolveErr))
		return Result{Outcome: OutcomeResolutionFailed, Reason: ReasonResolution}
	}

	reportedAt := address
	if s.ManualAddress != "" {
		reportedAt = s.ManualAddress
	}

	req, err := p.store.Create(ctx, request.CreateInput{
		Kind:        s.Kind,
		OwnerID:     s.Reporter.ID,
		Description: describe(s.Kind, reportedAt),
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
	})
	if err != nil {
		log.Error("failed to persist request", zap.Error(err))
		return Result{Outcome: OutcomeServerError, Reason: ReasonPersistence}
	}

	result := Result{
		Accepted:  true,
		Outcome:   OutcomeAccepted,
		Address:   reportedAt,
		RequestID: req.ID,
		Center:    &center,
	}
	if resolved {
		result.Address = address
	}

	// The request is durable now; a client disconnect must not cancel the notification.
	handedOff = true
	start := time.Now()
	out := p.notifier.Send(context.WithoutCancel(ctx), notify.Notification{
		To:      center.Email,
		Cc:      s.Reporter.Email,
		Subject: subject(s.Kind),
		Body: composeBody(bodyInput{
			Kind:       s.Kind,
			ReportedAt: reportedAt,
			Resolved:   resolvedLine(resolved, address),
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			Center:     center,
			Reporter:   s.Reporter,
		}),
		Photo: s.Photo,
	})

	if !out.Delivered {
		result.Outcome = OutcomeNotificationFailed
		result.Reason = ReasonNotification
		log.Warn("request saved but notification failed",
			zap.String("request_id", req.ID.String()),
			zap.String("center", center.Name),
			zap.String("reason", out.Reason),
		)
		return result
	}

	result.Notified = true
	log.Info("request submitted",
		zap.String("request_id", req.ID.String()),
		zap.String("center", center.Name),
		zap.Duration("notify_elapsed", time.Since(start)),
	)
	return result
}

func invalid(reason string) Result {
	return Result{Outcome: OutcomeInvalid, Reason: reason}
}

func resolvedLine(resolved bool, address string) string {
	if !resolved {
		return ""
	}
	return address
}

func registryKind(k request.Kind) (geo.Kind, bool) {
	switch k {
	case request.KindGarbage:
		return geo.KindGarbage, true
	case request.KindRecyclable:
		return geo.KindRecycling, true
	default:
		return "", false
	}
}
