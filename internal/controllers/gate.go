package controllers

import (
	"context"
	"sync"
)

// Credential is the bearer credential supplied by the session gate
type Credential struct {
	Token string
}

// Present reports whether the user is signed in
func (c Credential) Present() bool {
	return c.Token != ""
}

// SessionGate supplies the current credential once authentication has resolved
type SessionGate interface {
	// Await blocks until the gate has resolved or ctx is done
	Await(ctx context.Context) (Credential, error)
}

// ResolvedGate is a gate that has already resolved to a fixed credential
type ResolvedGate Credential

func (g ResolvedGate) Await(ctx context.Context) (Credential, error) {
	return Credential(g), nil
}

// PendingGate resolves once, when Resolve is called
type PendingGate struct {
	once       sync.Once
	done       chan struct{}
	credential Credential
}

func NewPendingGate() *PendingGate {
	return &PendingGate{done: make(chan struct{})}
}

// Resolve publishes the credential; later calls are ignored
func (g *PendingGate) Resolve(credential Credential) {
	g.once.Do(func() {
		g.credential = credential
		close(g.done)
	})
}

func (g *PendingGate) Await(ctx context.Context) (Credential, error) {
	select {
	case <-g.done:
		return g.credential, nil
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	}
}
