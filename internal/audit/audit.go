// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package audit appends restriction mutations to a JSONL trail in the XDG
// state directory. Restrictions gate what the avatar may do, so every store
// mutation (and every policy no-op that looks like one to the issuing
// script) is worth a durable record when something needs explaining later.
package audit

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/rlvkit/rlvkit/internal/xdg"
)

// Effect labels what a mutation did.
type Effect string

// Mutation effects.
const (
	EffectApplied     Effect = "applied"
	EffectRemoved     Effect = "removed"
	EffectCleared     Effect = "cleared"
	EffectBlacklisted Effect = "blacklisted"
	EffectRefused     Effect = "refused"
	EffectQueued      Effect = "queued"
	EffectSwept       Effect = "swept"
)

// Entry is one audit record.
type Entry struct {
	ID        string    `json:"id"`
	Issuer    string    `json:"issuer"`
	Command   string    `json:"command"`
	Rule      string    `json:"rule,omitempty"`
	Effect    Effect    `json:"effect"`
	Timestamp time.Time `json:"timestamp"`
}

var failuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rlv_audit_failures_total",
	Help: "Total number of audit write failures by reason",
}, []string{"reason"})

// Logger appends entries to a JSONL file. Writes are synchronous; a
// transient failure is retried a handful of times with fibonacci backoff
// and then counted and dropped. Audit must never block a restriction
// mutation indefinitely.
type Logger struct {
	path    string
	file    *os.File
	entropy *rand.Rand
}

// NewLogger opens (creating if needed) the audit trail at path. An empty
// path uses $XDG_STATE_HOME/rlvkit/restrictions.jsonl.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		stateDir := xdg.StateDir()
		if err := xdg.EnsureDir(stateDir); err != nil {
			return nil, oops.With("dir", stateDir).Wrap(err)
		}
		path = filepath.Join(stateDir, "restrictions.jsonl")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}

	return &Logger{
		path:    path,
		file:    file,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // ids, not secrets
	}, nil
}

// Path returns the trail location.
func (l *Logger) Path() string {
	return l.path
}

// Log appends one entry, stamping its id and timestamp.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	now := time.Now()
	entry.ID = ulid.MustNew(ulid.Timestamp(now), l.entropy).String()
	entry.Timestamp = now

	line, err := json.Marshal(entry)
	if err != nil {
		failuresCounter.WithLabelValues("marshal").Inc()
		return oops.Wrapf(err, "marshal audit entry")
	}
	line = append(line, '\n')

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(5*time.Millisecond))
	err = retry.Do(ctx, backoff, func(_ context.Context) error {
		if _, writeErr := l.file.Write(line); writeErr != nil {
			return retry.RetryableError(writeErr)
		}
		return nil
	})
	if err != nil {
		failuresCounter.WithLabelValues("write").Inc()
		return oops.With("path", l.path).Wrapf(err, "append audit entry")
	}
	return nil
}

// Close closes the trail file.
func (l *Logger) Close() error {
	if err := l.file.Close(); err != nil {
		return oops.With("path", l.path).Wrap(err)
	}
	return nil
}
