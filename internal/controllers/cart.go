package controllers

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"tickets-web/internal/models"
)

// User-facing messages raised by the cart
const (
	MsgEmptySelection  = "Select at least one item!"
	MsgCheckoutFailed  = "Checkout failed: "
	MsgConnectionError = "Connection error. Please try again."
	MsgDeleteFailed    = "Failed to delete item."
	PromptDeleteLine   = "Remove this item?"
)

// CartBackend is the part of the booking API the cart needs
type CartBackend interface {
	GetCart(ctx context.Context, token string) ([]models.CartLine, error)
	DeleteCartLine(ctx context.Context, token string, id int64) error
	Checkout(ctx context.Context, token string, req *models.CheckoutRequest) (*models.CheckoutResult, error)
}

// CartOption configures a CartController
type CartOption func(*CartController)

// WithRestoreOnFailedDelete puts a line back when its delete never reached the backend
func WithRestoreOnFailedDelete() CartOption {
	return func(c *CartController) {
		c.restoreFailedDeletes = true
	}
}

// WithCartLogger sets the controller logger
func WithCartLogger(logger *slog.Logger) CartOption {
	return func(c *CartController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CartController drives one cart view: loading, selection, deletion and checkout
type CartController struct {
	mu sync.Mutex

	gate     SessionGate
	backend  CartBackend
	nav      Navigator
	notifier Notifier
	logger   *slog.Logger

	restoreFailedDeletes bool

	lifecycle
	state       State
	credential  Credential
	lines       []models.CartLine
	selected    []int64
	method      models.PaymentMethod
	checkingOut bool
	loaded      bool
}

// NewCartController creates a cart view bound to one session gate
func NewCartController(gate SessionGate, backend CartBackend, nav Navigator, notifier Notifier, opts ...CartOption) *CartController {
	c := &CartController{
		gate:     gate,
		backend:  backend,
		nav:      nav,
		notifier: notifier,
		logger:   slog.New(slog.DiscardHandler),
		state:    StatePendingAuth,
		method:   models.DefaultPaymentMethod(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the cart once the session gate has resolved.
//
// Only cancellation of ctx and a closed view are reported as errors; backend
// failures end in the empty or redirected state.
func (c *CartController) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state.Terminal() {
		c.mu.Unlock()
		return models.ErrViewClosed
	}
	gen := c.begin()
	c.state = StatePendingAuth
	c.mu.Unlock()

	credential, err := c.gate.Await(ctx)

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.clear(StateEmpty)
		c.mu.Unlock()
		return err
	}
	c.credential = credential
	if !credential.Present() {
		c.clear(StateEmpty)
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoading
	c.mu.Unlock()

	lines, err := c.backend.GetCart(ctx, credential.Token)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.current(gen) {
		c.logger.Debug("dropping stale cart response", "generation", gen)
		return nil
	}

	switch {
	case err == nil:
		c.lines = lines
		c.selected = retainPresent(c.selected, lines)
		c.loaded = true
		if len(lines) == 0 {
			c.state = StateEmpty
		} else {
			c.state = StateReady
		}
	case models.IsAuthFailure(err):
		c.redirectToLogin()
	default:
		c.logger.Warn("cart load failed, showing empty cart", "error", err)
		c.clear(StateEmpty)
	}
	return nil
}

// ToggleSelection adds id to the selection if absent and removes it otherwise.
// Ids not in the loaded cart are ignored.
func (c *CartController) ToggleSelection(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || indexOfLine(c.lines, id) < 0 {
		return false
	}

	if i := slices.Index(c.selected, id); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
	} else {
		c.selected = append(c.selected, id)
	}
	return true
}

// SetPaymentMethod chooses the payment method for the next checkout
func (c *CartController) SetPaymentMethod(method models.PaymentMethod) error {
	if !method.IsValid() {
		return models.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = method
	return nil
}

// DeleteLine removes a line after the user confirms.
//
// The line leaves the cart and the selection as soon as the request is issued.
// A request that never reaches the backend notifies the user and, with
// WithRestoreOnFailedDelete, puts the line back.
func (c *CartController) DeleteLine(ctx context.Context, id int64, confirmer Confirmer) error {
	c.mu.Lock()
	if c.closed || c.state.Terminal() {
		c.mu.Unlock()
		return models.ErrViewClosed
	}
	if indexOfLine(c.lines, id) < 0 {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if confirmer == nil || !confirmer.Confirm(PromptDeleteLine) {
		return models.ErrConfirmationDenied
	}

	c.mu.Lock()
	idx := indexOfLine(c.lines, id)
	if c.closed || idx < 0 {
		c.mu.Unlock()
		return nil
	}
	removed := c.lines[idx]
	c.lines = slices.Delete(slices.Clone(c.lines), idx, idx+1)
	if i := slices.Index(c.selected, id); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
	}
	if len(c.lines) == 0 {
		c.state = StateEmpty
	}
	gen := c.generation
	token := c.credential.Token
	c.mu.Unlock()

	err := c.backend.DeleteCartLine(ctx, token, id)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	switch {
	case models.IsAuthFailure(err):
		c.redirectToLogin()
	case errors.Is(err, models.ErrTransport):
		c.notifier.Notify(MsgDeleteFailed)
		if c.restoreFailedDeletes && c.generation == gen && indexOfLine(c.lines, id) < 0 {
			c.lines = slices.Insert(slices.Clone(c.lines), min(idx, len(c.lines)), removed)
			c.state = StateReady
		}
	default:
		c.logger.Info("cart line delete rejected", "cart_id", id, "error", err)
		return nil
	}
	return err
}

// Total returns the payable amount for the current selection
func (c *CartController) Total() models.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ComputeTotal(c.lines, c.selected)
}

// Checkout submits the selection with the chosen payment method.
//
// At most one checkout is outstanding; a second call while one is in flight
// returns ErrCheckoutInFlight without touching the backend.
func (c *CartController) Checkout(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed || c.state.Terminal() {
		c.mu.Unlock()
		return "", models.ErrViewClosed
	}
	if c.checkingOut {
		c.mu.Unlock()
		return "", models.ErrCheckoutInFlight
	}
	if len(c.selected) == 0 {
		c.notifier.Notify(MsgEmptySelection)
		c.mu.Unlock()
		return "", models.ErrEmptySelection
	}

	req := &models.CheckoutRequest{
		CartIDs:       slices.Clone(c.selected),
		PaymentMethod: c.method,
	}
	if err := req.Validate(c.lines); err != nil {
		c.mu.Unlock()
		return "", err
	}
	c.checkingOut = true
	token := c.credential.Token
	c.mu.Unlock()

	result, err := c.backend.Checkout(ctx, token, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkingOut = false

	if c.closed {
		c.logger.Debug("dropping checkout response for closed view")
		return "", models.ErrViewClosed
	}

	switch {
	case err == nil:
		c.logger.Info("checkout completed", "booking_code", result.BookingCode, "lines", len(req.CartIDs))
		c.nav.ToTicket(result.BookingCode)
		return result.BookingCode, nil
	case models.IsAuthFailure(err):
		c.redirectToLogin()
	case errors.Is(err, models.ErrTransport):
		c.notifier.Notify(MsgConnectionError)
	default:
		message, ok := models.BusinessMessage(err)
		if !ok {
			message = err.Error()
		}
		c.notifier.Notify(MsgCheckoutFailed + message)
	}
	return "", err
}

// Close tears the view down; responses still in flight are ignored
func (c *CartController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
}

// CartView is a consistent copy of the controller state for rendering
type CartView struct {
	State         State
	Lines         []models.CartLine
	Selected      map[int64]bool
	SelectedCount int
	PaymentMethod models.PaymentMethod
	CheckingOut   bool
	Loaded        bool
	Total         models.Amount
}

// CanCheckout reports whether the checkout action should be enabled
func (v CartView) CanCheckout() bool {
	return v.SelectedCount > 0 && !v.CheckingOut
}

// Snapshot returns the current state for rendering
func (c *CartController) Snapshot() CartView {
	c.mu.Lock()
	defer c.mu.Unlock()

	selected := make(map[int64]bool, len(c.selected))
	for _, id := range c.selected {
		selected[id] = true
	}

	return CartView{
		State:         c.state,
		Lines:         slices.Clone(c.lines),
		Selected:      selected,
		SelectedCount: len(c.selected),
		PaymentMethod: c.method,
		CheckingOut:   c.checkingOut,
		Loaded:        c.loaded,
		Total:         ComputeTotal(c.lines, c.selected),
	}
}

// Selection returns the selected ids in selection order
func (c *CartController) Selection() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.selected)
}

// ComputeTotal sums total_price over the lines whose id is selected
func ComputeTotal(lines []models.CartLine, selected []int64) models.Amount {
	var total models.Amount
	for _, line := range lines {
		if slices.Contains(selected, line.ID) {
			total += line.TotalPrice
		}
	}
	return total
}

func (c *CartController) clear(state State) {
	c.lines = nil
	c.selected = nil
	c.loaded = true
	c.state = state
}

func (c *CartController) redirectToLogin() {
	c.clear(StateRedirected)
	c.nav.ToLogin()
}

func retainPresent(selected []int64, lines []models.CartLine) []int64 {
	var kept []int64
	for _, id := range selected {
		if indexOfLine(lines, id) >= 0 {
			kept = append(kept, id)
		}
	}
	return kept
}

func indexOfLine(lines []models.CartLine, id int64) int {
	return slices.IndexFunc(lines, func(line models.CartLine) bool {
		return line.ID == id
	})
}
