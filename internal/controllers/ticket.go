package controllers

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"tickets-web/internal/models"
)

// MsgAccessDenied is shown before an auth failure sends the user to login
const MsgAccessDenied = "Access denied or session expired."

// BookingBackend is the part of the booking API the ticket view needs
type BookingBackend interface {
	GetBooking(ctx context.Context, token string, code string) (*models.Booking, error)
}

// TicketViewer loads and exposes one finalized booking, read-only
type TicketViewer struct {
	mu sync.Mutex

	gate     SessionGate
	backend  BookingBackend
	nav      Navigator
	notifier Notifier
	logger   *slog.Logger

	lifecycle
	state   State
	code    string
	booking *models.Booking
	loaded  bool
}

// NewTicketViewer creates a ticket view bound to one session gate
func NewTicketViewer(gate SessionGate, backend BookingBackend, nav Navigator, notifier Notifier, logger *slog.Logger) *TicketViewer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TicketViewer{
		gate:     gate,
		backend:  backend,
		nav:      nav,
		notifier: notifier,
		logger:   logger,
		state:    StatePendingAuth,
	}
}

// Load fetches the booking identified by code.
//
// Without a credential it navigates to login and never fetches. Auth
// failures notify and navigate to login; every other failure ends in the
// not-found state.
func (v *TicketViewer) Load(ctx context.Context, code string) error {
	v.mu.Lock()
	if v.closed || v.state.Terminal() {
		v.mu.Unlock()
		return models.ErrViewClosed
	}
	gen := v.begin()
	v.state = StatePendingAuth
	v.code = strings.TrimSpace(code)
	v.booking = nil
	v.mu.Unlock()

	credential, err := v.gate.Await(ctx)

	v.mu.Lock()
	if !v.current(gen) {
		v.mu.Unlock()
		return nil
	}
	if err != nil {
		v.finish(StateNotFound)
		v.mu.Unlock()
		return err
	}
	if !credential.Present() {
		v.finish(StateRedirected)
		v.nav.ToLogin()
		v.mu.Unlock()
		return nil
	}
	if v.code == "" {
		v.finish(StateNotFound)
		v.mu.Unlock()
		return nil
	}
	code = v.code
	v.state = StateLoading
	v.mu.Unlock()

	booking, err := v.backend.GetBooking(ctx, credential.Token, code)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.current(gen) {
		v.logger.Debug("dropping stale booking response", "booking_code", code)
		return nil
	}

	switch {
	case err == nil:
		v.booking = booking
		v.finish(StateReady)
	case models.IsAuthFailure(err):
		v.notifier.Notify(MsgAccessDenied)
		v.finish(StateRedirected)
		v.nav.ToLogin()
	default:
		v.logger.Info("booking unavailable", "booking_code", code, "error", err)
		v.finish(StateNotFound)
	}
	return nil
}

// Close tears the view down; a response still in flight is ignored
func (v *TicketViewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.close()
}

// TicketView is a copy of the viewer state for rendering
type TicketView struct {
	State   State
	Code    string
	Booking *models.Booking
	Loaded  bool
}

// Snapshot returns the current state for rendering
func (v *TicketViewer) Snapshot() TicketView {
	v.mu.Lock()
	defer v.mu.Unlock()

	return TicketView{
		State:   v.state,
		Code:    v.code,
		Booking: v.booking,
		Loaded:  v.loaded,
	}
}

func (v *TicketViewer) finish(state State) {
	v.state = state
	v.loaded = true
}
