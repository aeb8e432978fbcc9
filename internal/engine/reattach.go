// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// reattachRequest is one pending silent reattach of a locked attachment
// that the world kicked off. While pending, incoming commands defer.
type reattachRequest struct {
	active   bool
	item     uuid.UUID
	point    string
	deadline time.Time
}

// QueueReattach schedules a silent reattach of a locked attachment that was
// detached by the world (region crossing, attachment kick). The deferral
// gate closes until the reattach completes or times out.
func (e *Engine) QueueReattach(item uuid.UUID, point string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reattach = reattachRequest{
		active:   true,
		item:     item,
		point:    point,
		deadline: time.Now().Add(e.cfg.ReattachTimeout),
	}
	slog.Info("reattach queued", "item", item, "point", point)
}

// ReattachPending reports whether a reattach is still outstanding.
func (e *Engine) ReattachPending() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reattachPending()
}

// reattachPending is read-only so the lock-shared query paths can call it.
// Expiry happens in expireReattach, under the write lock.
func (e *Engine) reattachPending() bool {
	return e.reattach.active && time.Now().Before(e.reattach.deadline)
}

// expireReattach drops a request past its deadline, so a reattach the world
// never acknowledges cannot wedge the command gate forever. Caller holds
// the write lock.
func (e *Engine) expireReattach() {
	if e.reattach.active && !time.Now().Before(e.reattach.deadline) {
		slog.Warn("reattach timed out", "item", e.reattach.item, "point", e.reattach.point)
		e.reattach = reattachRequest{}
	}
}

// OnAttachmentSettled fires the pending reattach once the host reports the
// kicked object has fully settled. No-op when nothing is pending.
func (e *Engine) OnAttachmentSettled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireReattach()
	if !e.reattachPending() {
		return
	}
	e.actions.AttachItem(e.reattach.item, e.reattach.point, false)
	slog.Info("reattach fired", "item", e.reattach.item, "point", e.reattach.point)
	e.reattach = reattachRequest{}
}
