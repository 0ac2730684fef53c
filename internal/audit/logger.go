// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package audit records access decisions made by the realm core.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

// Mode controls which decisions are recorded.
type Mode string

// Audit modes.
const (
	ModeNone    Mode = "none"    // nothing
	ModeDenials Mode = "denials" // rejected joins and denied actions
	ModeAll     Mode = "all"     // everything
)

// ParseMode validates a configured mode string. Empty selects ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeAll, nil
	case ModeNone, ModeDenials, ModeAll:
		return Mode(s), nil
	default:
		return "", oops.In("audit").Code("AUDIT_INVALID_MODE").With("mode", s).
			Errorf("audit mode must be one of none, denials, all")
	}
}

// Operation names the decision entry point that produced an entry.
type Operation string

// Operations.
const (
	OperationAuthenticate Operation = "authenticate"
	OperationAuthorize    Operation = "authorize"
)

// Entry is a single recorded decision. It never carries credentials.
type Entry struct {
	ID        ulid.ULID
	Operation Operation
	Subject   string
	Realm     string
	Action    string
	Resource  string
	Allowed   bool
	Disclose  bool
	Code      string
	Duration  time.Duration
	Timestamp time.Time
}

var entriesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "realmgate_audit_entries_total",
	Help: "Total number of access decisions written to the audit log",
}, []string{"operation"})

// Logger writes entries to a slog.Logger according to its mode.
// A nil *Logger discards everything.
type Logger struct {
	mode   Mode
	logger *slog.Logger
}

// NewLogger creates a Logger. If logger is nil, slog.Default() is used at write time.
func NewLogger(mode Mode, logger *slog.Logger) *Logger {
	return &Logger{mode: mode, logger: logger}
}

// Mode returns the configured mode.
func (l *Logger) Mode() Mode {
	if l == nil {
		return ModeNone
	}
	return l.mode
}

// Log records entry if the mode selects it. Denials are written at info
// level, allows at debug.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if !l.shouldLog(entry.Allowed) {
		return
	}

	if entry.ID == (ulid.ULID{}) {
		entry.ID = ulid.Make()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	logger := l.logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("audit_id", entry.ID.String()),
		slog.String("operation", string(entry.Operation)),
		slog.String("subject", entry.Subject),
		slog.Bool("allowed", entry.Allowed),
		slog.Int64("duration_us", entry.Duration.Microseconds()),
	}
	if entry.Realm != "" {
		attrs = append(attrs, slog.String("realm", entry.Realm))
	}
	if entry.Action != "" {
		attrs = append(attrs, slog.String("action", entry.Action))
	}
	if entry.Resource != "" {
		attrs = append(attrs, slog.String("resource", entry.Resource))
	}
	if entry.Operation == OperationAuthorize {
		attrs = append(attrs, slog.Bool("disclose", entry.Disclose))
	}
	if entry.Code != "" {
		attrs = append(attrs, slog.String("code", entry.Code))
	}

	level := slog.LevelDebug
	if !entry.Allowed {
		level = slog.LevelInfo
	}

	logger.LogAttrs(ctx, level, "access decision", attrs...)
	entriesCounter.WithLabelValues(string(entry.Operation)).Inc()
}

func (l *Logger) shouldLog(allowed bool) bool {
	if l == nil {
		return false
	}
	switch l.mode {
	case ModeAll:
		return true
	case ModeDenials:
		return !allowed
	default:
		return false
	}
}
