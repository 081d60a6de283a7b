package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"tickets-web/internal/controllers"
	"tickets-web/internal/middleware"
	"tickets-web/web/templates/components"
	"tickets-web/web/templates/pages"

	"github.com/go-chi/chi/v5"
)

// TicketHandler renders finalized bookings
type TicketHandler struct {
	backend  controllers.BookingBackend
	sessions *middleware.SessionMiddleware
	pages    pageContext
	logger   *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(backend controllers.BookingBackend, sessions *middleware.SessionMiddleware, storageURL string, logger *slog.Logger) *TicketHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TicketHandler{
		backend:  backend,
		sessions: sessions,
		pages:    pageContext{sessions: sessions, storageURL: storageURL},
		logger:   logger,
	}
}

// TicketPage shows the booking with its scannable code
func (h *TicketHandler) TicketPage(w http.ResponseWriter, r *http.Request) {
	view, messages, ok := h.load(w, r)
	if !ok {
		return
	}

	if view.State != controllers.StateReady {
		render(w, r, h.logger, http.StatusNotFound, pages.TicketNotFoundPage(pages.NotFoundData{
			Page: h.pages.page(w, r, messages...),
			Code: view.Code,
		}))
		return
	}

	qr, err := components.QRDataURI(view.Booking.QRString)
	if err != nil {
		h.logger.Error("failed to render ticket qr", "booking_code", view.Code, "error", err)
	}

	render(w, r, h.logger, http.StatusOK, pages.TicketPage(pages.TicketPageData{
		Page:    h.pages.page(w, r, messages...),
		Booking: view.Booking,
		QR:      qr,
	}))
}

// DownloadQR serves the ticket QR as a PNG attachment
func (h *TicketHandler) DownloadQR(w http.ResponseWriter, r *http.Request) {
	view, _, ok := h.load(w, r)
	if !ok {
		return
	}
	if view.State != controllers.StateReady {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}

	png, err := components.QRPNG(view.Booking.QRString)
	if err != nil {
		h.logger.Error("failed to encode ticket qr", "booking_code", view.Code, "error", err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "ticket-" + view.Code + ".png"}))
	w.Header().Set("Cache-Control", "private, no-store")
	w.Write(png)
}

// load runs a ticket viewer for the code in the URL. It returns false once a
// redirect to login has been written.
func (h *TicketHandler) load(w http.ResponseWriter, r *http.Request) (controllers.TicketView, []string, bool) {
	outbox := &controllers.Outbox{}
	viewer := controllers.NewTicketViewer(middleware.GateFromContext(r.Context()), h.backend, outbox, outbox, h.logger)
	defer viewer.Close()

	code := bookingCode(r)
	if err := viewer.Load(r.Context(), code); err != nil {
		h.logger.Info("ticket load interrupted", "booking_code", code, "error", err)
	}

	destination, messages := outbox.Drain()
	if destination != nil && destination.Login {
		h.sessions.AddFlash(w, r, messages...)
		handleRedirect(w, r, loginURL(components.TicketPath(code)), http.StatusSeeOther)
		return controllers.TicketView{}, nil, false
	}
	return viewer.Snapshot(), messages, true
}

// bookingCode returns the decoded {code} segment. chi matches against the raw
// path when it holds escapes such as %2F, leaving the parameter encoded.
func bookingCode(r *http.Request) string {
	code := chi.URLParam(r, "code")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(code); err == nil {
			code = unescaped
		}
	}
	return code
}
