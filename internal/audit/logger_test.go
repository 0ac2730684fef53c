// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/realmgate/pkg/errutil"
)

func newBufferLogger(mode Mode) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewLogger(mode, slog.New(handler)), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAll},
		{"none", ModeNone},
		{"denials", ModeDenials},
		{"all", ModeAll},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("everything")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUDIT_INVALID_MODE")
}

func TestLogger_ModeFiltering(t *testing.T) {
	tests := []struct {
		mode        Mode
		wantAllowed bool
		wantDenied  bool
	}{
		{ModeNone, false, false},
		{ModeDenials, false, true},
		{ModeAll, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			l, buf := newBufferLogger(tt.mode)
			l.Log(context.Background(), Entry{Operation: OperationAuthorize, Subject: "bob", Allowed: true})
			assert.Equal(t, tt.wantAllowed, buf.Len() > 0)

			buf.Reset()
			l.Log(context.Background(), Entry{Operation: OperationAuthorize, Subject: "bob", Allowed: false})
			assert.Equal(t, tt.wantDenied, buf.Len() > 0)
		})
	}
}

func TestLogger_AuthorizeEntry(t *testing.T) {
	l, buf := newBufferLogger(ModeAll)

	l.Log(context.Background(), Entry{
		Operation: OperationAuthorize,
		Subject:   "philippe",
		Action:    "publish",
		Resource:  "topic1",
		Allowed:   false,
		Disclose:  true,
		Duration:  1500 * time.Microsecond,
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	e := lines[0]
	assert.Equal(t, "access decision", e["msg"])
	assert.Equal(t, "INFO", e["level"], "denials are logged at info")
	assert.Equal(t, "authorize", e["operation"])
	assert.Equal(t, "philippe", e["subject"])
	assert.Equal(t, "publish", e["action"])
	assert.Equal(t, "topic1", e["resource"])
	assert.Equal(t, false, e["allowed"])
	assert.Equal(t, true, e["disclose"])
	assert.Equal(t, float64(1500), e["duration_us"])
	assert.NotContains(t, e, "realm")
	assert.NotContains(t, e, "code")

	_, err := ulid.Parse(e["audit_id"].(string))
	assert.NoError(t, err)
}

func TestLogger_AuthenticateEntry(t *testing.T) {
	l, buf := newBufferLogger(ModeAll)

	id := ulid.Make()
	l.Log(context.Background(), Entry{
		ID:        id,
		Operation: OperationAuthenticate,
		Subject:   "bob",
		Realm:     "realm1",
		Allowed:   true,
	})
	l.Log(context.Background(), Entry{
		Operation: OperationAuthenticate,
		Subject:   "mallory",
		Realm:     "realm1",
		Code:      "AUTH_INVALID_TOKEN",
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "DEBUG", lines[0]["level"], "allows are logged at debug")
	assert.Equal(t, id.String(), lines[0]["audit_id"])
	assert.Equal(t, "realm1", lines[0]["realm"])
	assert.NotContains(t, lines[0], "disclose")

	assert.Equal(t, "INFO", lines[1]["level"])
	assert.Equal(t, "AUTH_INVALID_TOKEN", lines[1]["code"])
}

func TestLogger_CountsEntries(t *testing.T) {
	l, _ := newBufferLogger(ModeDenials)
	counter := entriesCounter.WithLabelValues(string(OperationAuthenticate))
	before := testutil.ToFloat64(counter)

	l.Log(context.Background(), Entry{Operation: OperationAuthenticate, Allowed: true})
	l.Log(context.Background(), Entry{Operation: OperationAuthenticate, Allowed: false})

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	assert.Equal(t, ModeNone, l.Mode())
	assert.NotPanics(t, func() {
		l.Log(context.Background(), Entry{Operation: OperationAuthorize})
	})
}

func TestLogger_DefaultsToSlogDefault(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	defer slog.SetDefault(original)
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	NewLogger(ModeDenials, nil).Log(context.Background(), Entry{Operation: OperationAuthorize, Subject: "bob"})
	assert.Contains(t, buf.String(), `"subject":"bob"`)
	assert.Equal(t, ModeDenials, NewLogger(ModeDenials, nil).Mode())
}
