// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/realmgate/pkg/errutil"
)

// NotifyChannel is the PostgreSQL channel the realm table triggers notify on.
const NotifyChannel = "realm_tables_changed"

// ReconnectPayload is emitted after every (re)connection so consumers reload
// anything they may have missed while disconnected.
const ReconnectPayload = "reconnect"

// Default reconnect backoff.
const (
	defaultReconnectInitial = 100 * time.Millisecond
	defaultReconnectMax     = 30 * time.Second
)

// notifyConn is the subset of *pgx.Conn used for LISTEN.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type connectFunc func(ctx context.Context) (notifyConn, error)

// PgListener implements tables.Listener with a dedicated LISTEN connection.
// Lost connections are re-established with capped exponential backoff.
type PgListener struct {
	connect          connectFunc
	reconnectInitial time.Duration
	reconnectMax     time.Duration
	logger           *slog.Logger
}

// ListenerOption configures a PgListener.
type ListenerOption func(*PgListener)

// WithReconnectBackoff sets the initial and maximum reconnect delay.
func WithReconnectBackoff(initial, maxDelay time.Duration) ListenerOption {
	return func(l *PgListener) {
		l.reconnectInitial = initial
		l.reconnectMax = maxDelay
	}
}

// WithListenerLogger sets the logger for connection errors.
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *PgListener) {
		l.logger = logger
	}
}

// NewPgListener creates a listener that dials databaseURL directly, outside any pool.
func NewPgListener(databaseURL string, opts ...ListenerOption) *PgListener {
	return newPgListener(func(ctx context.Context) (notifyConn, error) {
		return pgx.Connect(ctx, databaseURL)
	}, opts...)
}

func newPgListener(connect connectFunc, opts ...ListenerOption) *PgListener {
	l := &PgListener{
		connect:          connect,
		reconnectInitial: defaultReconnectInitial,
		reconnectMax:     defaultReconnectMax,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen implements tables.Listener. The returned channel closes once ctx is
// cancelled and the connection has been released.
func (l *PgListener) Listen(ctx context.Context) (<-chan string, error) {
	if l.reconnectInitial <= 0 || l.reconnectMax < l.reconnectInitial {
		return nil, oops.In("store").Code("LISTENER_INVALID_BACKOFF").
			With("initial", l.reconnectInitial.String()).With("max", l.reconnectMax.String()).
			Errorf("invalid reconnect backoff")
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		for {
			// A fresh backoff per outage: the delay only grows while reconnects keep failing.
			backoff := retry.WithCappedDuration(l.reconnectMax, retry.NewExponential(l.reconnectInitial))
			//nolint:errcheck // returns errSessionEnded or once ctx is done
			_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
				established, err := l.session(ctx, ch)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errutil.LogErrorContext(ctx, l.logger, "tables listener disconnected", err)
				if established {
					return errSessionEnded
				}
				return retry.RetryableError(err)
			})
			if !sleep(ctx, l.reconnectInitial) {
				return
			}
		}
	}()
	return ch, nil
}

// errSessionEnded stops the current backoff after a session that reached LISTEN.
var errSessionEnded = errors.New("listener session ended")

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// session runs one connection until it fails or ctx is cancelled. established
// reports whether LISTEN succeeded.
func (l *PgListener) session(ctx context.Context, ch chan<- string) (established bool, err error) {
	conn, err := l.connect(ctx)
	if err != nil {
		return false, oops.In("store").Code("LISTENER_CONNECT_FAILED").Wrap(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx) //nolint:errcheck // connection is being discarded
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		return false, oops.In("store").Code("LISTENER_LISTEN_FAILED").With("channel", NotifyChannel).Wrap(err)
	}
	l.logger.InfoContext(ctx, "listening for tables changes", "channel", NotifyChannel)

	if !send(ctx, ch, ReconnectPayload) {
		return true, ctx.Err()
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true, err
			}
			return true, oops.In("store").Code("LISTENER_WAIT_FAILED").With("channel", NotifyChannel).Wrap(err)
		}
		if !send(ctx, ch, n.Payload) {
			return true, ctx.Err()
		}
	}
}

func send(ctx context.Context, ch chan<- string, payload string) bool {
	select {
	case ch <- payload:
		return true
	case <-ctx.Done():
		return false
	}
}
