package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Sallahudin001/proposal-engine/internal/obs"
)

// TaskOfferDeactivate deactivates a time-limited offer at its deadline.
const TaskOfferDeactivate = "offers:deactivate"

type deactivatePayload struct {
	OfferID string `json:"offer_id"`
}

// Enqueuer schedules offer deactivation jobs. It satisfies the session
// manager's ExpiryScheduler.
type Enqueuer struct {
	Client *asynq.Client
}

// ScheduleDeactivation enqueues a deactivation job to run at the offer's
// deadline. Every session open for the same proposal schedules the same job;
// the task id collapses the duplicates.
func (e Enqueuer) ScheduleDeactivation(ctx context.Context, offerID string, at time.Time) error {
	if e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(deactivatePayload{OfferID: offerID})
	if err != nil {
		return fmt.Errorf("marshal deactivation payload: %w", err)
	}
	task := asynq.NewTask(TaskOfferDeactivate, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID("offer-deactivate:"+offerID),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Deactivator flips an offer inactive in storage.
type Deactivator interface {
	DeactivateOffer(ctx context.Context, offerID string) error
}

// Handler processes deactivation jobs on the worker.
type Handler struct {
	Store  Deactivator
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload deactivatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode deactivation payload: %w", err)
	}
	if payload.OfferID == "" {
		return errors.New("deactivation payload missing offer id")
	}
	if err := h.Store.DeactivateOffer(ctx, payload.OfferID); err != nil {
		return fmt.Errorf("deactivate offer %s: %w", payload.OfferID, err)
	}
	obs.OffersExpired.Inc()
	h.Logger.Info().Str("offer_id", payload.OfferID).Msg("offer deactivated")
	return nil
}

// Register installs the handler on the worker mux.
func (h Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskOfferDeactivate, h)
}
