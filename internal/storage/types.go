package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled      = errors.New("storage disabled")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only
}

// AuditEntry is one admin action.
type AuditEntry struct {
	At            time.Time `json:"at"`
	ActorID       int64     `json:"actor_id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	ChatID        int64     `json:"chat_id"`
	Action        string    `json:"action"`
	Target        string    `json:"target,omitempty"`
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
}

type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to n entries, newest last.
	RecentAudit(ctx context.Context, n int) ([]AuditEntry, error)
	Close() error
}

// Disabled is the Store used when no driver is configured.
type Disabled struct{}

func (Disabled) AppendAudit(context.Context, AuditEntry) error { return ErrDisabled }
func (Disabled) RecentAudit(context.Context, int) ([]AuditEntry, error) {
	return nil, ErrDisabled
}
func (Disabled) Close() error { return nil }
