// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rlvkit/rlvkit/internal/audit"
)

// GarbageCollect sweeps restrictions whose issuer no longer exists
// in-world. The null issuer survives ordinary sweeps (manually injected
// restrictions have no object behind them); includeNull drops those too.
// Returns whether anything was swept.
func (e *Engine) GarbageCollect(ctx context.Context, includeNull bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	gcSweepsTotal.Inc()

	swept := false
	for {
		again := false
		for _, issuer := range e.store.Issuers() {
			if issuer == uuid.Nil && !includeNull {
				continue
			}
			if e.avatar.ObjectExists(issuer) {
				continue
			}
			removed := e.store.RemoveMatching(issuer, "")
			for _, entry := range removed {
				e.notifyObservers(entry.Rule(), "=y")
			}
			e.recomputeAll()
			e.auditLog(ctx, issuer, "", "", audit.EffectSwept)
			gcSweptIssuersTotal.Inc()
			slog.InfoContext(ctx, "swept dead issuer", "issuer", issuer, "restrictions", len(removed))
			swept = true
			// Issuers changed under us; restart the scan.
			again = true
			break
		}
		if !again {
			return swept
		}
	}
}

// RunGC sweeps on a fixed interval until the context is canceled. Run it
// on its own goroutine.
func (e *Engine) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.GarbageCollect(ctx, false)
		}
	}
}
