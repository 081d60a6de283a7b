package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tickets-web/internal/controllers"
	"tickets-web/internal/middleware"
	"tickets-web/internal/models"
	"tickets-web/internal/services"
	"tickets-web/web/templates/components"
	"tickets-web/web/templates/pages"

	"github.com/go-chi/chi/v5"
)

// cartView is one open cart page: its controller and the outbox it reports through
type cartView struct {
	*controllers.CartController
	outbox *controllers.Outbox
	token  string
}

// CartHandlerConfig configures the cart pages
type CartHandlerConfig struct {
	StorageURL           string
	ViewTTL              time.Duration
	MaxViews             int
	RestoreFailedDeletes bool
}

// CartHandler handles the cart page, its HTMX actions, and checkout
type CartHandler struct {
	backend  services.BackendService
	sessions *middleware.SessionMiddleware
	views    *services.ViewRegistry[*cartView]
	pages    pageContext
	options  []controllers.CartOption
	logger   *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(backend services.BackendService, sessions *middleware.SessionMiddleware, config CartHandlerConfig, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	options := []controllers.CartOption{controllers.WithCartLogger(logger)}
	if config.RestoreFailedDeletes {
		options = append(options, controllers.WithRestoreOnFailedDelete())
	}

	return &CartHandler{
		backend:  backend,
		sessions: sessions,
		views:    services.NewViewRegistry[*cartView](config.ViewTTL, config.MaxViews, logger),
		pages:    pageContext{sessions: sessions, storageURL: config.StorageURL},
		options:  options,
		logger:   logger,
	}
}

// Close tears down every open cart view
func (h *CartHandler) Close() {
	h.views.Close()
}

// CartPage opens a fresh cart view and renders it once loaded.
// Anonymous views have nothing to act on and are not kept between requests.
func (h *CartHandler) CartPage(w http.ResponseWriter, r *http.Request) {
	if previous := h.sessions.CartViewID(r); previous != "" {
		h.views.Remove(previous)
	}

	credential := middleware.GetCredentialFromContext(r.Context())
	outbox := &controllers.Outbox{}
	view := &cartView{
		CartController: controllers.NewCartController(middleware.GateFromContext(r.Context()), h.backend, outbox, outbox, h.options...),
		outbox:         outbox,
		token:          credential.Token,
	}
	if credential.Present() {
		id := h.views.Put(view)
		if err := h.sessions.SetCartViewID(w, r, id); err != nil {
			h.logger.Error("failed to save cart view id", "error", err)
		}
	} else {
		defer view.Close()
	}

	if err := view.Load(r.Context()); err != nil {
		h.logger.Info("cart load interrupted", "error", err)
	}

	h.respond(w, r, view)
}

// ToggleSelection flips one line in or out of the selection
func (h *CartHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	view.CartController.ToggleSelection(id)
	h.respond(w, r, view)
}

// DeleteLine removes a line once the request carries confirm=yes.
// Without it, browsers that did not confirm client-side get a confirmation page.
func (h *CartHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	id, ok := lineID(w, r)
	if !ok {
		return
	}

	confirmed := controllers.ConfirmFunc(func(string) bool {
		return r.FormValue("confirm") == "yes"
	})

	err := view.CartController.DeleteLine(r.Context(), id, confirmed)
	switch {
	case errors.Is(err, models.ErrConfirmationDenied) && !middleware.IsHTMXRequest(r):
		render(w, r, h.logger, http.StatusOK, pages.ConfirmPage(pages.ConfirmData{
			Page:      h.pages.page(w, r),
			Prompt:    controllers.PromptDeleteLine,
			Action:    r.URL.Path,
			CancelURL: "/cart",
		}))
		return
	case errors.Is(err, models.ErrViewClosed):
		handleRedirect(w, r, "/cart", http.StatusSeeOther)
		return
	case err != nil:
		h.logger.Info("cart line delete failed", "cart_id", id, "error", err)
	}

	h.respond(w, r, view)
}

// SetPaymentMethod records the chosen payment method
func (h *CartHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}

	method, err := models.ParsePaymentMethod(r.FormValue("payment_method"))
	if err != nil {
		http.Error(w, "Invalid payment method", http.StatusBadRequest)
		return
	}
	if err := view.CartController.SetPaymentMethod(method); err != nil {
		http.Error(w, "Invalid payment method", http.StatusBadRequest)
		return
	}

	h.respond(w, r, view)
}

// Checkout submits the selection; success lands on the ticket page
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}

	code, err := view.CartController.Checkout(r.Context())
	switch {
	case err == nil:
		h.logger.Info("booking created", "booking_code", code)
	case errors.Is(err, models.ErrViewClosed):
		handleRedirect(w, r, "/cart", http.StatusSeeOther)
		return
	case errors.Is(err, models.ErrCheckoutInFlight), errors.Is(err, models.ErrEmptySelection):
	default:
		h.logger.Warn("checkout failed", "error", err)
	}

	h.respond(w, r, view)
}

// lookup finds the cart view this browser opened. A missing, expired, or
// foreign view sends the user back to /cart for a fresh one.
func (h *CartHandler) lookup(w http.ResponseWriter, r *http.Request) (*cartView, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return nil, false
	}

	view, ok := h.views.Get(h.sessions.CartViewID(r))
	if !ok || view.token != middleware.GetCredentialFromContext(r.Context()).Token {
		handleRedirect(w, r, "/cart", http.StatusSeeOther)
		return nil, false
	}
	return view, true
}

// respond applies the navigation and messages the view raised, then renders it
func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, view *cartView) {
	destination, messages := view.outbox.Drain()

	if destination != nil {
		if destination.Login {
			h.views.Remove(h.sessions.CartViewID(r))
			h.sessions.AddFlash(w, r, messages...)
			handleRedirect(w, r, loginURL("/cart"), http.StatusSeeOther)
			return
		}
		h.sessions.AddFlash(w, r, messages...)
		handleRedirect(w, r, components.TicketPath(destination.Code), http.StatusSeeOther)
		return
	}

	data := pages.NewCartPageData(h.pages.page(w, r, messages...), view.Snapshot())
	if middleware.IsHTMXRequest(r) {
		render(w, r, h.logger, http.StatusOK, pages.CartItemsPartial(data))
		return
	}
	render(w, r, h.logger, http.StatusOK, pages.CartPage(data))
}

func lineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid cart item ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
