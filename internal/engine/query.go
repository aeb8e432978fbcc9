// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rlvkit/rlvkit/internal/world"
)

// fartouchMaxDistance is how far the avatar may reach under a fartouch
// restriction, in meters.
const fartouchMaxDistance = 1.5

// Contains reports whether any issuer holds an exactly-matching rule.
func (e *Engine) Contains(rule string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Contains(rule)
}

// ContainsSubstr reports whether any rule contains the fragment.
func (e *Engine) ContainsSubstr(fragment string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.ContainsSubstr(fragment)
}

// IsAllowed reports whether the issuer does not already hold the rule.
func (e *Engine) IsAllowed(issuer uuid.UUID, rule string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isAllowed(issuer, rule)
}

func (e *Engine) isAllowed(issuer uuid.UUID, rule string) bool {
	return !e.store.ContainsPair(issuer, strings.ToLower(rule))
}

// ContainsWithoutException decides whether a behaviour blocks despite a
// candidate exception. With an empty exception it degrades to plain
// presence of the behaviour or its secure variant.
func (e *Engine) ContainsWithoutException(behaviour, exception string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.containsWithoutException(behaviour, exception)
}

// containsWithoutException is the core exception-scoping rule. An exception
// only defeats a secured restriction when the same issuer granted it, and
// under a global permissive restriction even plain restrictions demand
// same-issuer exceptions. A plain restriction with no secured issuer
// accepts an exception from anyone.
func (e *Engine) containsWithoutException(behaviour, exception string) bool {
	b := strings.ToLower(behaviour)
	if exception == "" {
		return e.store.Contains(b) || e.store.Contains(b+"_sec")
	}
	exc := strings.ToLower(exception)

	permissive := e.flags.active["permissive"]
	for _, issuer := range e.store.Issuers() {
		secured := e.store.ContainsPair(issuer, b+"_sec")
		if !secured && permissive && e.store.ContainsPair(issuer, b) {
			secured = true
		}
		if !secured {
			continue
		}
		if !e.store.ContainsPair(issuer, b+":"+exc) &&
			!e.store.ContainsPair(issuer, b+"_sec:"+exc) {
			return true
		}
	}

	if e.store.Contains(b) &&
		!e.store.Contains(b+":"+exc) && !e.store.Contains(b+"_sec:"+exc) {
		return true
	}
	return false
}

// --- permission predicates consulted by the host client ---

// TeleportBlocked reports the cached composite teleport restriction.
func (e *Engine) TeleportBlocked() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flags.teleportBlocked
}

// CanTpLoc reports whether teleporting to arbitrary coordinates is allowed.
func (e *Engine) CanTpLoc() bool {
	return !e.flagActive("tploc")
}

// CanTpLandmark reports whether teleporting via landmark is allowed.
func (e *Engine) CanTpLandmark() bool {
	return !e.flagActive("tplm")
}

// CanTpLure reports whether a teleport offer from the given avatar may be
// accepted.
func (e *Engine) CanTpLure(from uuid.UUID) bool {
	return !e.ContainsWithoutException("tplure", from.String())
}

// CanSendIM reports whether an instant message may be sent to the recipient.
func (e *Engine) CanSendIM(to uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.store.Contains("sendimto:" + to.String()) {
		return false
	}
	return !e.containsWithoutException("sendim", to.String())
}

// CanReceiveIM reports whether an instant message from the sender may be
// shown.
func (e *Engine) CanReceiveIM(from uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.store.Contains("recvimfrom:" + from.String()) {
		return false
	}
	return !e.containsWithoutException("recvim", from.String())
}

// CanStartIM reports whether a new IM session with the avatar may be opened.
func (e *Engine) CanStartIM(with uuid.UUID) bool {
	return !e.ContainsWithoutException("startim", with.String())
}

// CanSendChat reports whether public channel-0 chat is allowed at all.
func (e *Engine) CanSendChat() bool {
	return !e.flagActive("sendchat")
}

// CanSendChannel reports whether chat on a non-zero channel is allowed.
func (e *Engine) CanSendChannel(channel int32) bool {
	return !e.ContainsWithoutException("sendchannel", strconv.FormatInt(int64(channel), 10))
}

// CanReceiveChat reports whether public chat from the given avatar may be
// shown.
func (e *Engine) CanReceiveChat(from uuid.UUID) bool {
	return !e.ContainsWithoutException("recvchat", from.String())
}

// CanStand reports whether the avatar may stand up.
func (e *Engine) CanStand() bool {
	return !e.flagActive("unsit")
}

// CanSit reports whether the avatar may sit down.
func (e *Engine) CanSit() bool {
	return !e.flagActive("sit")
}

// CanFly reports whether flying is allowed.
func (e *Engine) CanFly() bool {
	return !e.flagActive("fly")
}

// CanEdit reports whether the given object may be edited.
func (e *Engine) CanEdit(object uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.store.Contains("editobj:" + object.String()) {
		return false
	}
	return !e.containsWithoutException("edit", object.String())
}

// CanRez reports whether rezzing objects is allowed.
func (e *Engine) CanRez() bool {
	return !e.flagActive("rez")
}

// CanShowNames reports whether avatar names may be rendered in chat.
func (e *Engine) CanShowNames() bool {
	return !e.flagActive("shownames")
}

// CanShowLocation reports whether the region name may be shown.
func (e *Engine) CanShowLocation() bool {
	return !e.flagActive("showloc")
}

// CanTouch reports whether the avatar may touch the given object.
func (e *Engine) CanTouch(object uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.flags.active["interact"] || e.flags.active["touchall"] {
		return false
	}
	if e.store.Contains("touchthis:" + object.String()) {
		return false
	}
	if _, worn := e.avatar.ItemOfWornObject(object); worn {
		return !e.flags.active["touchattach"]
	}
	if e.flags.active["touchworld"] && !e.store.Contains("touchworld:"+object.String()) {
		return false
	}
	if e.flags.active["fartouch"] {
		pos, ok := e.avatar.ObjectPosition(object)
		if !ok || distance(pos, e.avatar.Position()) > fartouchMaxDistance {
			return false
		}
	}
	return true
}

// CanAttachPoint reports whether an object may be attached at the named
// point.
func (e *Engine) CanAttachPoint(point string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.canAttachPoint(point)
}

func (e *Engine) canAttachPoint(point string) bool {
	if e.store.Contains("addattach:" + strings.ToLower(point)) {
		return false
	}
	return !e.flags.active["addattach"]
}

// CanDetachPoint reports whether the attachment at the named point may be
// removed, ignoring folder locks.
func (e *Engine) CanDetachPoint(point string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.canDetachPoint(point)
}

func (e *Engine) canDetachPoint(point string) bool {
	if e.store.Contains("remattach:" + strings.ToLower(point)) {
		return false
	}
	return !e.flags.active["remattach"]
}

// CanWear reports whether a clothing layer may be put on.
func (e *Engine) CanWear(layer string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.canWear(layer)
}

func (e *Engine) canWear(layer string) bool {
	if e.store.Contains("addoutfit:" + strings.ToLower(layer)) {
		return false
	}
	return !e.store.Contains("addoutfit")
}

// CanUnwear reports whether a clothing layer may be taken off.
func (e *Engine) CanUnwear(layer string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.canUnwear(layer)
}

func (e *Engine) canUnwear(layer string) bool {
	if e.store.Contains("remoutfit:" + strings.ToLower(layer)) {
		return false
	}
	return !e.store.Contains("remoutfit")
}

// CanDetach reports whether a worn object may be detached. It combines the
// issuer self-lock, point restrictions, and the folder lock of the object's
// inventory folder.
func (e *Engine) CanDetach(object uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.canDetach(object)
}

func (e *Engine) canDetach(object uuid.UUID) bool {
	// An object that issued a blanket detach restriction locked itself on.
	if e.store.ContainsPair(object, "detach") {
		return false
	}
	for _, a := range e.avatar.Attachments() {
		if a.Object != object {
			continue
		}
		point := strings.ToLower(a.Point)
		if e.store.Contains("detach:"+point) || !e.canDetachPoint(point) {
			return false
		}
		if folder, ok := e.inv.FolderOfItem(a.Item.ID); ok {
			if e.evaluateFolderLock(folder, LockDetach) != Unlocked {
				return false
			}
		}
	}
	return true
}

func (e *Engine) flagActive(behaviour string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flags.active[behaviour]
}

func distance(a, b world.Vector3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
