package pages

import (
	"embed"
	"html/template"

	"tickets-web/internal/controllers"
	"tickets-web/internal/models"
	"tickets-web/web/templates/components"

	"github.com/a-h/templ"
)

//go:embed html/*.html
var files embed.FS

var funcs = template.FuncMap{
	"rupiah":   components.FormatRupiah,
	"imageURL": components.ImageURL,
	"qrPath":   components.TicketQRPath,
}

var (
	cartPage     = parse("cart.html")
	confirmPage  = parse("confirm.html")
	ticketPage   = parse("ticket.html")
	notFoundPage = parse("notfound.html")
	loginPage    = parse("login.html")
)

func parse(page string) *template.Template {
	return template.Must(template.New(page).Funcs(funcs).ParseFS(files, "html/layout.html", "html/"+page))
}

// Page carries what every full page renders around its content
type Page struct {
	CSRFToken  string
	Email      string
	Flashes    []string
	StorageURL string
}

// CartPageData is the cart view plus what the page needs to draw it
type CartPageData struct {
	Page
	Cart           controllers.CartView
	PaymentMethods []models.PaymentMethod
	DeletePrompt   string
	BrowseURL      string
}

// NewCartPageData fills the static parts of the cart page
func NewCartPageData(page Page, cart controllers.CartView) CartPageData {
	return CartPageData{
		Page:           page,
		Cart:           cart,
		PaymentMethods: models.PaymentMethods,
		DeletePrompt:   controllers.PromptDeleteLine,
		BrowseURL:      "/",
	}
}

// CartPage renders the full cart page
func CartPage(data CartPageData) templ.Component {
	return templ.FromGoHTML(cartPage.Lookup("layout"), data)
}

// CartItemsPartial renders only the #cart element for HTMX swaps
func CartItemsPartial(data CartPageData) templ.Component {
	return templ.FromGoHTML(cartPage.Lookup("cart"), data)
}

// ConfirmData describes a confirmation step for browsers without JavaScript
type ConfirmData struct {
	Page
	Prompt    string
	Action    string
	CancelURL string
}

func ConfirmPage(data ConfirmData) templ.Component {
	return templ.FromGoHTML(confirmPage.Lookup("layout"), data)
}

// TicketPageData is a loaded booking ready to render
type TicketPageData struct {
	Page
	Booking *models.Booking
	QR      template.URL
}

func TicketPage(data TicketPageData) templ.Component {
	return templ.FromGoHTML(ticketPage.Lookup("layout"), data)
}

type NotFoundData struct {
	Page
	Code string
}

func TicketNotFoundPage(data NotFoundData) templ.Component {
	return templ.FromGoHTML(notFoundPage.Lookup("layout"), data)
}

type LoginData struct {
	Page
	Error     string
	FormEmail string
	Next      string
}

func LoginPage(data LoginData) templ.Component {
	return templ.FromGoHTML(loginPage.Lookup("layout"), data)
}
