// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rlvkit/rlvkit/internal/audit"
	"github.com/rlvkit/rlvkit/internal/command"
	"github.com/rlvkit/rlvkit/internal/wire"
)

var tracer = otel.Tracer("github.com/rlvkit/rlvkit/internal/engine")

// relayContext carries per-batch state shared between the sub-commands of
// one comma batch. It never survives past the batch.
type relayContext struct {
	noRelay bool
}

// NoRelay reports whether a "relayed" marker was seen in the current batch.
func (rc *relayContext) NoRelay() bool { return rc.noRelay }

// HandleCommand interprets one raw command line from an in-world object.
// Comma batches run left to right; the return value is false if any
// sub-command failed. While the startup or reattach gate is closed the line
// is queued verbatim and reported as accepted.
func (e *Engine) HandleCommand(ctx context.Context, issuer uuid.UUID, raw string) bool {
	ctx, span := tracer.Start(ctx, "rlv.command", trace.WithAttributes(
		attribute.String("rlv.issuer", issuer.String()),
		attribute.String("rlv.raw", raw),
	))
	defer span.End()

	e.mu.Lock()
	ok := e.handle(ctx, issuer, raw, &relayContext{}, false)
	e.mu.Unlock()
	span.SetAttributes(attribute.Bool("rlv.ok", ok))
	return ok
}

func (e *Engine) handle(ctx context.Context, issuer uuid.UUID, raw string, rc *relayContext, inBatch bool) bool {
	if strings.Contains(raw, ",") {
		ok := true
		for _, sub := range wire.Split(raw, ",") {
			if !e.handle(ctx, issuer, sub, rc, true) {
				ok = false
			}
		}
		return ok
	}

	e.expireReattach()
	if !e.started || e.reattachPending() {
		e.queue = append(e.queue, queuedCommand{issuer: issuer, raw: raw})
		queueDepthGauge.Set(float64(len(e.queue)))
		e.auditLog(ctx, issuer, raw, "", audit.EffectQueued)
		recordCommand(outcomeQueued)
		slog.DebugContext(ctx, "command deferred", "issuer", issuer, "raw", raw)
		return true
	}

	cmd, err := wire.Parse(raw)
	if err != nil {
		recordCommand(outcomeFailed)
		return false
	}

	if !cmd.HasParam {
		switch cmd.Behaviour {
		case "clear":
			return e.clearRestrictions(ctx, issuer, "")
		case "relayed":
			// Only meaningful as a batch marker.
			if inBatch {
				rc.noRelay = true
				return true
			}
		}
		recordCommand(outcomeFailed)
		return false
	}

	if cmd.Behaviour == "clear" {
		return e.clearRestrictions(ctx, issuer, cmd.Param)
	}

	if e.infoBehaviour(cmd.Behaviour) {
		ok := e.answerInfo(ctx, issuer, cmd, rc)
		if ok {
			recordCommand(outcomeInfo)
		} else {
			recordCommand(outcomeFailed)
		}
		return ok
	}

	switch cmd.Param {
	case "n", "add":
		if !e.addRestriction(ctx, issuer, cmd.Behaviour, cmd.Option, raw) {
			recordCommand(outcomeFailed)
			return false
		}
		return true
	case "y", "rem":
		if !e.removeRestriction(ctx, issuer, cmd.Behaviour, cmd.Option, raw) {
			recordCommand(outcomeFailed)
			return false
		}
		return true
	case "force":
		if !e.force(ctx, issuer, cmd) {
			recordCommand(outcomeFailed)
			return false
		}
		recordCommand(outcomeForced)
		return true
	}

	recordCommand(outcomeFailed)
	return false
}

// infoBehaviour reports whether the behaviour is an info query. The
// getenv_/getdebug_ families match by prefix; their suffix names the
// setting queried.
func (e *Engine) infoBehaviour(behaviour string) bool {
	if strings.HasPrefix(behaviour, "getenv_") || strings.HasPrefix(behaviour, "getdebug_") {
		return true
	}
	entry, ok := e.table.Lookup(behaviour)
	return ok && entry.Category == command.CategoryInfo
}

// FireCommands drains the deferred queue in arrival order. Draining stops
// early if a command re-closes the gate (a reattach kick mid-drain); the
// remainder stays queued.
func (e *Engine) FireCommands(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireReattach()
	for len(e.queue) > 0 && e.started && !e.reattachPending() {
		q := e.queue[0]
		e.queue = e.queue[1:]
		queueDepthGauge.Set(float64(len(e.queue)))
		e.handle(ctx, q.issuer, q.raw, &relayContext{}, false)
	}
}

// QueueDepth returns the number of deferred commands.
func (e *Engine) QueueDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.queue)
}

// Ready implements the readiness probe: the engine is ready once started
// with an empty deferral queue.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started && len(e.queue) == 0 && !e.reattachPending()
}
