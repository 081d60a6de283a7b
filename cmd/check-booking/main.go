// check-booking fetches one finalized booking from the backend and prints it,
// optionally saving its QR code as a PNG. Useful at a gate when the web
// frontend is unavailable.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"tickets-web/internal/config"
	"tickets-web/internal/controllers"
	"tickets-web/internal/services"
	"tickets-web/web/templates/components"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	qrPath string
	asJSON bool
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		backendURL string
		token      string
		email      string
		password   string
		verbose    bool
		timeout    time.Duration
		opts       options
	)

	flagSet := pflag.NewFlagSet("check-booking", pflag.ContinueOnError)
	flagSet.StringVar(&backendURL, "backend", cfg.Backend.BaseURL, "backend API base URL, or \"mock\" for the demo backend")
	flagSet.StringVar(&token, "token", os.Getenv("BACKEND_TOKEN"), "bearer token (default $BACKEND_TOKEN)")
	flagSet.StringVar(&email, "email", "", "sign in with this email instead of --token")
	flagSet.StringVar(&password, "password", "", "password for --email")
	flagSet.StringVar(&opts.qrPath, "qr", "", "write the ticket QR code to this PNG file")
	flagSet.BoolVar(&opts.asJSON, "json", false, "print the booking as JSON")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log backend requests to stderr")
	flagSet.DurationVar(&timeout, "timeout", cfg.Backend.Timeout, "overall request timeout")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if flagSet.NArg() != 1 {
		return errors.New("exactly one booking code is required")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var backend services.BackendService
	if backendURL == config.MockBackend {
		backend = services.NewMockBackendService()
	} else {
		backend = services.NewBackendClient(services.BackendConfig{
			BaseURL:            backendURL,
			Timeout:            timeout,
			BreakerMaxFailures: cfg.Backend.BreakerMaxFailures,
			BreakerOpenTimeout: cfg.Backend.BreakerOpenTimeout,
		}, logger)
	}

	if email != "" {
		token, err = backend.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
	}
	if token == "" {
		return errors.New("no credential: pass --token, set BACKEND_TOKEN, or use --email")
	}

	return checkBooking(ctx, backend, token, flagSet.Arg(0), opts, out, logger)
}

// checkBooking loads the booking through a TicketViewer, so the CLI reports
// exactly what the ticket page would show.
func checkBooking(ctx context.Context, backend controllers.BookingBackend, token, code string, opts options, out io.Writer, logger *slog.Logger) error {
	outbox := &controllers.Outbox{}
	viewer := controllers.NewTicketViewer(controllers.ResolvedGate{Token: token}, backend, outbox, outbox, logger)
	defer viewer.Close()

	if err := viewer.Load(ctx, code); err != nil {
		return err
	}

	view := viewer.Snapshot()
	switch view.State {
	case controllers.StateReady:
	case controllers.StateRedirected:
		return errors.New(controllers.MsgAccessDenied)
	default:
		return fmt.Errorf("booking %q not found", view.Code)
	}
	booking := view.Booking

	if opts.qrPath != "" {
		png, err := components.QRPNG(booking.QRString)
		if err != nil {
			return fmt.Errorf("encode qr: %w", err)
		}
		if err := os.WriteFile(opts.qrPath, png, 0o644); err != nil {
			return fmt.Errorf("write qr: %w", err)
		}
	}

	if opts.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(booking)
	}

	fmt.Fprintf(out, "Booking %s\n", booking.BookingCode)
	for _, detail := range booking.Details {
		fmt.Fprintf(out, "  %-32s %s  %d people\n", detail.Destination.Name, detail.VisitDate, detail.Quantity)
	}
	fmt.Fprintf(out, "Total paid: %s (%d people)\n", components.FormatRupiah(booking.GrandTotal), booking.TotalQuantity())
	if opts.qrPath != "" {
		fmt.Fprintf(out, "QR code written to %s\n", opts.qrPath)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `check-booking prints a finalized booking and can save its QR code.

Usage:
  check-booking [flags] BOOKING_CODE

Examples:
  check-booking --token "$TOKEN" TRX123
  check-booking --email demo@example.com --password password --qr ticket.png TRX123
  check-booking --backend mock --token demo-token TRX123

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
