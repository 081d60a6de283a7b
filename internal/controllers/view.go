package controllers

import "sync"

// State is the lifecycle state shared by the cart and ticket views
type State string

const (
	StatePendingAuth State = "pending-auth"
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateEmpty       State = "empty"
	StateNotFound    State = "not-found"
	StateRedirected  State = "redirected"
)

// Terminal reports whether the view can no longer be reloaded
func (s State) Terminal() bool {
	return s == StateRedirected
}

// Navigator moves the user to another surface
type Navigator interface {
	ToLogin()
	ToTicket(code string)
}

// Notifier shows a message to the user
type Notifier interface {
	Notify(message string)
}

// Confirmer asks the user to confirm a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Destination is where a Navigator call sends the user
type Destination struct {
	Login bool
	Code  string
}

// Outbox records navigation and notifications until the caller drains them.
// It implements both Navigator and Notifier.
type Outbox struct {
	mu          sync.Mutex
	destination *Destination
	messages    []string
}

func (o *Outbox) ToLogin() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destination = &Destination{Login: true}
}

func (o *Outbox) ToTicket(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destination = &Destination{Code: code}
}

func (o *Outbox) Notify(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
}

// Drain returns and clears the pending navigation and messages
func (o *Outbox) Drain() (*Destination, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	destination, messages := o.destination, o.messages
	o.destination, o.messages = nil, nil
	return destination, messages
}

// lifecycle guards state updates against late responses.
// Callers hold the owning controller's mutex.
type lifecycle struct {
	generation uint64
	closed     bool
}

// begin starts a new load and invalidates every earlier one
func (l *lifecycle) begin() uint64 {
	l.generation++
	return l.generation
}

// current reports whether a response for gen may still be applied
func (l *lifecycle) current(gen uint64) bool {
	return !l.closed && l.generation == gen
}

func (l *lifecycle) close() {
	l.closed = true
	l.generation++
}
