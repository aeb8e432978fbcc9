// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package command holds the static classification table for every behaviour
// the engine understands, the two canned blacklist presets derived from it,
// and the blacklist filter that decides whether a command is administratively
// disabled.
package command

import (
	"strings"
)

// Category classifies a command for blacklist and listing purposes.
type Category string

// Command categories. Info and Miscellaneous commands can never be
// blacklisted: they carry no restriction semantics of their own.
const (
	CategoryInfo          Category = "info"
	CategoryMiscellaneous Category = "miscellaneous"
	CategoryMovement      Category = "movement"
	CategoryChat          Category = "chat"
	CategoryTeleport      Category = "teleport"
	CategoryInventory     Category = "inventory"
	CategoryLock          Category = "lock"
	CategoryAttach        Category = "attach"
	CategoryDetach        Category = "detach"
	CategoryTouch         Category = "touch"
	CategoryLocation      Category = "location"
	CategoryName          Category = "name"
	CategoryGroup         Category = "group"
	CategoryPermission    Category = "permission"
	CategoryDebug         Category = "debug"
	CategoryEnvironment   Category = "environment"
)

// ForceMarker suffixes table keys for commands that have a "=force" variant.
// It never appears on the wire.
const ForceMarker = "%f"

// Entry is one classification table row.
type Entry struct {
	Category Category
	HasForce bool
}

// Table is the static command classification registry. Built once at startup;
// immutable afterwards.
type Table struct {
	entries  map[string]Entry
	ordered  []string // names in declaration order, without the force marker
	vanilla  []string
	roleplay []string
}

// roleplayCategories are the categories accumulated into the "roleplay"
// preset: chat/IM/emote, teleport, inventory, location, name, group, and
// debug. Movement and touch are deliberately left usable.
var roleplayCategories = map[Category]bool{
	CategoryChat:      true,
	CategoryTeleport:  true,
	CategoryInventory: true,
	CategoryLocation:  true,
	CategoryName:      true,
	CategoryGroup:     true,
	CategoryDebug:     true,
}

// declarations lists every known command. Names carrying the ForceMarker
// have a "=force" variant; the marker is part of the table key only.
var declarations = []struct {
	name string
	cat  Category
}{
	// Info queries, answered on a channel, never stored.
	{"version", CategoryInfo},
	{"versionnew", CategoryInfo},
	{"versionnum", CategoryInfo},
	{"versionnumbl", CategoryInfo},
	{"getblacklist", CategoryInfo},
	{"getoutfit", CategoryInfo},
	{"getattach", CategoryInfo},
	{"getstatus", CategoryInfo},
	{"getstatusall", CategoryInfo},
	{"getcommand", CategoryInfo},
	{"getcommandsbytype", CategoryInfo},
	{"getinv", CategoryInfo},
	{"getinvworn", CategoryInfo},
	{"getsitid", CategoryInfo},
	{"getpath", CategoryInfo},
	{"getpathnew", CategoryInfo},
	{"findfolder", CategoryInfo},
	{"getgroup", CategoryInfo},
	{"getdebug_", CategoryInfo},
	{"getenv_", CategoryInfo},

	// Miscellaneous engine-control commands.
	{"clear", CategoryMiscellaneous},
	{"relayed", CategoryMiscellaneous},
	{"notify", CategoryMiscellaneous},
	{"permissive", CategoryMiscellaneous},

	// Movement.
	{"fly", CategoryMovement},
	{"temprun", CategoryMovement},
	{"alwaysrun", CategoryMovement},
	{"sit" + ForceMarker, CategoryMovement},
	{"unsit" + ForceMarker, CategoryMovement},
	{"setrot" + ForceMarker, CategoryMovement},
	{"adjustheight" + ForceMarker, CategoryMovement},

	// Chat, emotes, and instant messages.
	{"sendchat", CategoryChat},
	{"chatshout", CategoryChat},
	{"chatnormal", CategoryChat},
	{"chatwhisper", CategoryChat},
	{"redirchat", CategoryChat},
	{"rediremote", CategoryChat},
	{"emote", CategoryChat},
	{"sendchannel", CategoryChat},
	{"sendchannel_sec", CategoryChat},
	{"recvchat", CategoryChat},
	{"recvchat_sec", CategoryChat},
	{"recvchatfrom", CategoryChat},
	{"recvemote", CategoryChat},
	{"recvemote_sec", CategoryChat},
	{"recvemotefrom", CategoryChat},
	{"sendim", CategoryChat},
	{"sendim_sec", CategoryChat},
	{"sendimto", CategoryChat},
	{"startim", CategoryChat},
	{"startimto", CategoryChat},
	{"recvim", CategoryChat},
	{"recvim_sec", CategoryChat},
	{"recvimfrom", CategoryChat},

	// Teleport.
	{"tplm", CategoryTeleport},
	{"tploc", CategoryTeleport},
	{"tplure", CategoryTeleport},
	{"tplure_sec", CategoryTeleport},
	{"tprequest", CategoryTeleport},
	{"tprequest_sec", CategoryTeleport},
	{"accepttp", CategoryTeleport},
	{"accepttprequest", CategoryTeleport},
	{"tpto" + ForceMarker, CategoryTeleport},
	{"sittp", CategoryTeleport},
	{"standtp", CategoryTeleport},

	// Inventory visibility.
	{"showinv", CategoryInventory},
	{"viewnote", CategoryInventory},
	{"viewscript", CategoryInventory},
	{"viewtexture", CategoryInventory},
	{"unsharedwear", CategoryInventory},
	{"unsharedunwear", CategoryInventory},

	// Folder locks.
	{"attachthis" + ForceMarker, CategoryLock},
	{"attachallthis" + ForceMarker, CategoryLock},
	{"detachthis" + ForceMarker, CategoryLock},
	{"detachallthis" + ForceMarker, CategoryLock},
	{"attachthis_except", CategoryLock},
	{"attachallthis_except", CategoryLock},
	{"detachthis_except", CategoryLock},
	{"detachallthis_except", CategoryLock},
	{"defaultwear", CategoryLock},

	// Attach family.
	{"addattach", CategoryAttach},
	{"addoutfit" + ForceMarker, CategoryAttach},
	{"attach" + ForceMarker, CategoryAttach},
	{"attachover" + ForceMarker, CategoryAttach},
	{"attachoverorreplace" + ForceMarker, CategoryAttach},
	{"attachall" + ForceMarker, CategoryAttach},
	{"attachallover" + ForceMarker, CategoryAttach},
	{"attachalloverorreplace" + ForceMarker, CategoryAttach},
	{"attachthisover" + ForceMarker, CategoryAttach},
	{"attachthisoverorreplace" + ForceMarker, CategoryAttach},
	{"attachallthisover" + ForceMarker, CategoryAttach},
	{"attachallthisoverorreplace" + ForceMarker, CategoryAttach},

	// Detach family.
	{"detach" + ForceMarker, CategoryDetach},
	{"remattach" + ForceMarker, CategoryDetach},
	{"remoutfit" + ForceMarker, CategoryDetach},
	{"detachme" + ForceMarker, CategoryDetach},
	{"detachall" + ForceMarker, CategoryDetach},

	// Touch and build.
	{"touchall", CategoryTouch},
	{"touchworld", CategoryTouch},
	{"touchthis", CategoryTouch},
	{"touchattach", CategoryTouch},
	{"touchattachself", CategoryTouch},
	{"touchattachother", CategoryTouch},
	{"fartouch", CategoryTouch},
	{"interact", CategoryTouch},
	{"edit", CategoryTouch},
	{"editobj", CategoryTouch},
	{"rez", CategoryTouch},

	// Location visibility.
	{"showloc", CategoryLocation},
	{"showworldmap", CategoryLocation},
	{"showminimap", CategoryLocation},

	// Name visibility.
	{"shownames", CategoryName},
	{"shownames_sec", CategoryName},
	{"shownametags", CategoryName},

	// Group.
	{"setgroup" + ForceMarker, CategoryGroup},

	// Permission dialogs.
	{"acceptpermission", CategoryPermission},
	{"denypermission", CategoryPermission},

	// Debug settings.
	{"setdebug", CategoryDebug},
	{"setdebug_" + ForceMarker, CategoryDebug},

	// Environment settings.
	{"setenv", CategoryEnvironment},
	{"setenv_" + ForceMarker, CategoryEnvironment},
}

// NewTable builds the classification table and accumulates the two preset
// blacklists as a side effect of populating it.
func NewTable() *Table {
	t := &Table{entries: make(map[string]Entry, len(declarations))}
	for _, d := range declarations {
		name := d.name
		hasForce := strings.HasSuffix(name, ForceMarker)
		if hasForce {
			name = strings.TrimSuffix(name, ForceMarker)
		}
		t.entries[name] = Entry{Category: d.cat, HasForce: hasForce}
		t.ordered = append(t.ordered, name)

		if d.cat == CategoryInfo || d.cat == CategoryMiscellaneous {
			continue
		}
		t.vanilla = append(t.vanilla, name)
		if roleplayCategories[d.cat] {
			t.roleplay = append(t.roleplay, name)
		}
	}
	return t
}

// Lookup returns the entry for a command name (without the force marker).
func (t *Table) Lookup(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Known reports whether name is a registered command at all.
func (t *Table) Known(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Preset returns a canned blacklist ("vanilla" or "roleplay") as the
// comma-joined string form used by host configuration.
func (t *Table) Preset(name string) (string, bool) {
	switch name {
	case "vanilla":
		return strings.Join(t.vanilla, ","), true
	case "roleplay":
		return strings.Join(t.roleplay, ","), true
	default:
		return "", false
	}
}

// List returns every command name containing filter, in declaration order,
// with no duplicates and no force markers. An empty filter matches all.
func (t *Table) List(filter string) []string {
	seen := make(map[string]bool, len(t.ordered))
	var out []string
	for _, name := range t.ordered {
		if seen[name] || !strings.Contains(name, filter) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ListByCategory returns every command name of the given category, in
// declaration order.
func (t *Table) ListByCategory(cat Category) []string {
	var out []string
	for _, name := range t.ordered {
		if t.entries[name].Category == cat {
			out = append(out, name)
		}
	}
	return out
}
