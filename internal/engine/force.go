// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rlvkit/rlvkit/internal/restriction"
	"github.com/rlvkit/rlvkit/internal/wire"
	"github.com/rlvkit/rlvkit/internal/world"
)

// sitMaxDistance is how far a forced sit may reach while a sittp
// restriction is active, in meters.
const sitMaxDistance = 1.5

// attachMode describes one member of the attach force family.
type attachMode struct {
	// this resolves the target through the issuer's own folder rules
	// instead of a plain path.
	this bool
	// recurse descends into subfolders.
	recurse bool
	// replace kicks whatever occupies the attachment point.
	replace bool
}

var attachModes = map[string]attachMode{
	"attach":                     {replace: true},
	"attachoverorreplace":        {replace: true},
	"attachover":                 {},
	"attachall":                  {recurse: true, replace: true},
	"attachalloverorreplace":     {recurse: true, replace: true},
	"attachallover":              {recurse: true},
	"attachthis":                 {this: true, replace: true},
	"attachthisoverorreplace":    {this: true, replace: true},
	"attachthisover":             {this: true},
	"attachallthis":              {this: true, recurse: true, replace: true},
	"attachallthisoverorreplace": {this: true, recurse: true, replace: true},
	"attachallthisover":          {this: true, recurse: true},
	"addoutfit":                  {replace: true},
}

// force executes one "=force" command. A blacklist hit reports success
// without acting, like blacklisted restrictions do.
func (e *Engine) force(ctx context.Context, issuer uuid.UUID, cmd wire.Command) bool {
	if e.table.Blacklisted(e.userBlacklist, cmd.Behaviour, true) {
		slog.DebugContext(ctx, "force command blacklisted", "behaviour", cmd.Behaviour, "issuer", issuer)
		recordCommand(outcomeBlacklisted)
		return true
	}

	entry, known := e.table.Lookup(cmd.Behaviour)
	if known && !entry.HasForce {
		return false
	}
	if !known {
		canonical, ok := e.table.Lookup(wireCanonical(cmd.Behaviour))
		if !ok || !canonical.HasForce {
			return false
		}
	}

	if mode, ok := attachModes[cmd.Behaviour]; ok {
		return e.forceAttach(issuer, cmd.Option, mode)
	}

	switch {
	case cmd.Behaviour == "sit":
		return e.forceSit(cmd.Option)
	case cmd.Behaviour == "unsit":
		return e.forceUnsit()
	case cmd.Behaviour == "detach", cmd.Behaviour == "remattach":
		return e.forceDetach(issuer, cmd.Option, false)
	case cmd.Behaviour == "detachall":
		return e.forceDetach(issuer, cmd.Option, true)
	case cmd.Behaviour == "detachme":
		if !e.canDetach(issuer) {
			return false
		}
		e.actions.DetachObject(issuer)
		return true
	case cmd.Behaviour == "detachthis", cmd.Behaviour == "detachallthis":
		folder, ok := e.lockTargetFolder(issuer, cmd.Option)
		if !ok {
			return false
		}
		e.detachFolder(folder, cmd.Behaviour == "detachallthis")
		return true
	case cmd.Behaviour == "remoutfit":
		return e.forceRemoveOutfit(cmd.Option)
	case cmd.Behaviour == "tpto":
		return e.forceTeleport(cmd.Option)
	case cmd.Behaviour == "setrot":
		radians, err := strconv.ParseFloat(cmd.Option, 64)
		if err != nil {
			return false
		}
		e.actions.SetRotation(radians)
		return true
	case cmd.Behaviour == "adjustheight":
		values := parseFloats(cmd.Option)
		if len(values) == 0 {
			return false
		}
		e.actions.AdjustHeight(values[0])
		return true
	case cmd.Behaviour == "setgroup":
		if cmd.Option == "" {
			return false
		}
		e.actions.ActivateGroup(cmd.Option)
		return true
	case strings.HasPrefix(cmd.Behaviour, "setenv_"):
		return e.forceSetEnv(strings.TrimPrefix(cmd.Behaviour, "setenv_"), cmd.Option)
	case strings.HasPrefix(cmd.Behaviour, "setdebug_"):
		return e.forceSetDebug(strings.TrimPrefix(cmd.Behaviour, "setdebug_"), cmd.Option)
	}
	return false
}

// wireCanonical reduces a wire behaviour to its table key, pooling the
// setdebug_/setenv_ families.
func wireCanonical(behaviour string) string {
	for _, prefix := range []string{"setdebug_", "setenv_"} {
		if strings.HasPrefix(behaviour, prefix) {
			return prefix
		}
	}
	return behaviour
}

// forceSit seats the avatar on the target object. A sittp restriction caps
// the reach: seats farther than sitMaxDistance are refused, nearby seats
// are taken with sittp lifted around the sit so the snap-to-seat move is
// not blocked.
func (e *Engine) forceSit(option string) bool {
	target, err := uuid.Parse(option)
	if err != nil {
		return false
	}
	if !e.avatar.ObjectExists(target) {
		return false
	}
	if e.avatar.Sitting() && e.flags.active["unsit"] {
		return false
	}
	if e.flags.active["sittp"] {
		pos, ok := e.avatar.ObjectPosition(target)
		if !ok || distance(pos, e.avatar.Position()) > sitMaxDistance {
			return false
		}
		e.withLifted([]string{"sittp"}, func() { e.actions.Sit(target) })
		return true
	}
	e.actions.Sit(target)
	return true
}

func (e *Engine) forceUnsit() bool {
	if e.flags.active["unsit"] {
		return false
	}
	e.actions.Stand()
	return true
}

// forceTeleport moves the avatar to "x/y/z" global coordinates. Any
// blocking tploc, unsit or sittp restriction is lifted around the jump; a
// seated avatar stands first.
func (e *Engine) forceTeleport(option string) bool {
	coords := parseFloats(option)
	if len(coords) != 3 {
		return false
	}
	pos := world.Vector3{X: coords[0], Y: coords[1], Z: coords[2]}
	jump := func() {
		if e.avatar.Sitting() {
			e.actions.Stand()
		}
		e.actions.TeleportTo(pos)
	}
	blocked := e.flags.active["tploc"] || e.flags.active["sittp"] ||
		(e.avatar.Sitting() && e.flags.active["unsit"])
	if blocked {
		e.withLifted([]string{"tploc", "unsit", "sittp"}, jump)
		return true
	}
	jump()
	return true
}

// forceDetach removes attachments. An empty option strips everything; a
// point name strips that point; anything else is a shared folder path.
func (e *Engine) forceDetach(issuer uuid.UUID, option string, recurse bool) bool {
	opt := strings.ToLower(option)
	switch {
	case option == "":
		for _, a := range e.avatar.Attachments() {
			e.detachAttachment(a)
		}
	case isAttachPoint(opt):
		for _, a := range e.avatar.Attachments() {
			if strings.ToLower(a.Point) == opt {
				e.detachAttachment(a)
			}
		}
	default:
		folder, ok := e.inv.FindFolder(option)
		if !ok {
			return false
		}
		e.detachFolder(folder, recurse)
	}
	return true
}

// detachFolder strips the worn contents of a folder, optionally descending.
func (e *Engine) detachFolder(folder uuid.UUID, recurse bool) {
	if e.nostripFolder(folder) {
		return
	}
	for _, item := range e.inv.Items(folder) {
		for _, a := range e.avatar.Attachments() {
			if a.Item.ID == item.ID {
				e.detachAttachment(a)
			}
		}
		if item.Layer != "" && e.itemWorn(item) && !nostripName(item.Name) {
			if e.canUnwear(item.Layer) {
				e.actions.RemoveLayer(item.Layer)
			}
		}
	}
	if recurse {
		for _, sub := range e.inv.Subfolders(folder) {
			e.detachFolder(sub.ID, true)
		}
	}
}

// detachAttachment detaches one worn object if nothing pins it on.
func (e *Engine) detachAttachment(a world.Attachment) {
	if nostripName(a.Item.Name) {
		return
	}
	if !e.canDetach(a.Object) {
		return
	}
	e.actions.DetachObject(a.Object)
}

// forceRemoveOutfit strips clothing layers, all of them when no layer is
// named.
func (e *Engine) forceRemoveOutfit(layer string) bool {
	if layer != "" {
		if !e.canUnwear(layer) {
			return false
		}
		e.actions.RemoveLayer(strings.ToLower(layer))
		return true
	}
	for _, worn := range e.avatar.WornLayers() {
		if e.canUnwear(worn) {
			e.actions.RemoveLayer(worn)
		}
	}
	return true
}

// forceAttach wears the contents of a folder according to the mode.
func (e *Engine) forceAttach(issuer uuid.UUID, option string, mode attachMode) bool {
	var folder uuid.UUID
	var ok bool
	if mode.this {
		folder, ok = e.lockTargetFolder(issuer, option)
	} else {
		if option == "" {
			return false
		}
		folder, ok = e.inv.FindFolder(option)
	}
	if !ok {
		return false
	}
	if e.evaluateFolderLock(folder, LockAttach) != Unlocked {
		return false
	}
	e.attachFolder(folder, mode)
	return true
}

// attachFolder wears a folder's items: objects to their attachment points,
// clothing and bodyparts as layers, gestures activated.
func (e *Engine) attachFolder(folder uuid.UUID, mode attachMode) {
	items := e.inv.Items(folder)
	for _, item := range items {
		switch item.Kind {
		case world.ItemObject:
			point := pointFromName(item.Name)
			if point == "" && item.NoMod && len(items) == 1 {
				// A lone no-modify object takes its point from the
				// enclosing folder's name.
				point = pointFromName(e.inv.FolderName(folder))
			}
			if point != "" && !e.canAttachPoint(point) {
				continue
			}
			e.actions.AttachItem(item.ID, point, mode.replace)
		case world.ItemClothing, world.ItemBodypart:
			if e.canWear(item.Layer) {
				e.actions.WearItem(item.ID)
			}
		case world.ItemGesture:
			e.actions.ActivateGesture(item.ID)
		}
	}
	if mode.recurse {
		for _, sub := range e.inv.Subfolders(folder) {
			if strings.HasPrefix(sub.Name, ".") {
				continue
			}
			e.attachFolder(sub.ID, mode)
		}
	}
}

// forceSetEnv applies one windlight parameter. An active setenv restriction
// is lifted around the write and reinstated afterwards.
func (e *Engine) forceSetEnv(name, option string) bool {
	values := parseFloats(option)
	if len(values) == 0 {
		return false
	}
	ok := true
	apply := func() {
		if err := e.actions.SetEnvironment(name, values); err != nil {
			slog.Warn("setenv failed", "name", name, "error", err)
			ok = false
		}
	}
	if e.flags.active["setenv"] {
		e.withLifted([]string{"setenv"}, apply)
	} else {
		apply()
	}
	return ok
}

// forceSetDebug applies one whitelisted debug setting, lifting an active
// setdebug restriction the same way forceSetEnv does.
func (e *Engine) forceSetDebug(name, option string) bool {
	if !e.debugAllowedName(name) {
		return false
	}
	value, err := strconv.ParseUint(option, 10, 32)
	if err != nil {
		return false
	}
	ok := true
	apply := func() {
		if err := e.actions.SetDebug(name, uint32(value)); err != nil {
			slog.Warn("setdebug failed", "name", name, "error", err)
			ok = false
		}
	}
	if e.flags.active["setdebug"] {
		e.withLifted([]string{"setdebug"}, apply)
	} else {
		apply()
	}
	return ok
}

// withLifted removes every entry of the given behaviours, runs fn, and
// reinstates them. Flags are recomputed around both edges so fn observes
// the lifted state.
func (e *Engine) withLifted(behaviours []string, fn func()) {
	var lifted []restriction.Entry
	for _, b := range behaviours {
		for _, entry := range e.store.All() {
			if entry.Behaviour != b {
				continue
			}
			if e.store.Remove(entry.Issuer, entry.Behaviour, entry.Option) {
				lifted = append(lifted, entry)
			}
		}
	}
	e.recomputeAll()
	fn()
	for _, entry := range lifted {
		e.store.Add(entry)
	}
	e.recomputeAll()
}

// nostripName reports whether an item name opts out of forced stripping.
func nostripName(name string) bool {
	return strings.Contains(strings.ToLower(name), "nostrip")
}

// nostripFolder reports whether a folder name opts out of forced stripping.
func (e *Engine) nostripFolder(folder uuid.UUID) bool {
	return nostripName(e.inv.FolderName(folder))
}

// isAttachPoint reports whether a lowercase option names a known
// attachment point.
func isAttachPoint(opt string) bool {
	for _, p := range attachPoints {
		if p == opt {
			return true
		}
	}
	return false
}

// pointFromName extracts an attachment point from a trailing
// parenthesized hint, "Collar (spine)" style.
func pointFromName(name string) string {
	open := strings.LastIndex(name, "(")
	closing := strings.LastIndex(name, ")")
	if open < 0 || closing < open {
		return ""
	}
	hint := strings.ToLower(strings.TrimSpace(name[open+1 : closing]))
	if isAttachPoint(hint) {
		return hint
	}
	return ""
}
