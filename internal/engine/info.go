// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/rlvkit/rlvkit/internal/command"
	"github.com/rlvkit/rlvkit/internal/restriction"
	"github.com/rlvkit/rlvkit/internal/wire"
	"github.com/rlvkit/rlvkit/internal/world"
)

// apiVersion is the protocol version reported to scripts. Scripts compare
// it numerically, so it only ever moves forward.
var apiVersion = semver.MustParse("2.9.31")

// implVersion is the implementation's own version, set at build time
// through the ldflags of the host binary. Scripts see it inside the
// version/versionnew replies only.
var implVersion = "0.0.0-dev"

// SetImplVersion overrides the implementation version reported in version
// replies. Called once at startup by the host.
func SetImplVersion(v string) {
	if v != "" {
		implVersion = v
	}
}

// clothingLayers is the fixed layer order used by getoutfit bitmaps.
var clothingLayers = []string{
	"gloves", "jacket", "pants", "shirt", "shoes", "skirt", "socks",
	"underpants", "undershirt", "skin", "eyes", "hair", "shape",
	"alpha", "tattoo", "physics",
}

// attachPoints is the fixed point order used by getattach bitmaps.
var attachPoints = []string{
	"none", "chest", "skull", "left shoulder", "right shoulder",
	"left hand", "right hand", "left foot", "right foot", "spine",
	"pelvis", "mouth", "chin", "left ear", "right ear",
	"left eyeball", "right eyeball", "nose", "r upper arm", "r forearm",
	"l upper arm", "l forearm", "right hip", "r upper leg", "r lower leg",
	"left hip", "l upper leg", "l lower leg", "stomach", "left pec",
	"right pec", "center 2", "top right", "top", "top left", "center",
	"bottom left", "bottom", "bottom right",
}

// answerInfo resolves one info query and replies on the requested channel.
// A malformed or forbidden channel swallows the query without any reply.
// The relay context hides "(norelay)" folders from listing and path replies
// when the batch carried a relayed marker.
func (e *Engine) answerInfo(ctx context.Context, issuer uuid.UUID, cmd wire.Command, rc *relayContext) bool {
	channel, err := wire.ParseChannel(cmd.Param)
	if err != nil {
		return false
	}

	var msg string
	switch {
	case cmd.Behaviour == "version":
		msg = fmt.Sprintf("RestrainedLove viewer v%s (RLVKit %s)", apiVersion, implVersion)
	case cmd.Behaviour == "versionnew":
		msg = fmt.Sprintf("RestrainedLove viewer v%s / RLVKit v%s", apiVersion, implVersion)
	case cmd.Behaviour == "versionnum":
		msg = strconv.FormatUint(versionNum(apiVersion), 10)
	case cmd.Behaviour == "versionnumbl":
		parts := append([]string{strconv.FormatUint(versionNum(apiVersion), 10)}, e.userBlacklist...)
		msg = strings.Join(parts, ",")
	case cmd.Behaviour == "getblacklist":
		msg = e.blacklistReply(cmd.Option)
	case cmd.Behaviour == "getcommand":
		msg = e.commandReply(cmd.Option)
	case cmd.Behaviour == "getcommandsbytype":
		msg = strings.Join(e.table.ListByCategory(command.Category(cmd.Option)), "/")
	case cmd.Behaviour == "getstatus":
		msg = restriction.Status(e.store.ForIssuer(issuer), cmd.Option)
	case cmd.Behaviour == "getstatusall":
		msg = restriction.Status(e.store.All(), cmd.Option)
	case cmd.Behaviour == "getsitid":
		seat, ok := e.avatar.SitObject()
		if !ok {
			seat = uuid.Nil
		}
		msg = seat.String()
	case cmd.Behaviour == "getoutfit":
		msg = e.outfitReply(cmd.Option)
	case cmd.Behaviour == "getattach":
		msg = e.attachReply(cmd.Option)
	case cmd.Behaviour == "getinv":
		msg = e.inventoryReply(cmd.Option, rc)
	case cmd.Behaviour == "getinvworn":
		msg = e.inventoryWornReply(cmd.Option, rc)
	case cmd.Behaviour == "getpath":
		paths := e.wornPaths(issuer, cmd.Option, rc)
		if len(paths) > 0 {
			msg = paths[0]
		}
	case cmd.Behaviour == "getpathnew":
		msg = strings.Join(e.wornPaths(issuer, cmd.Option, rc), ",")
	case cmd.Behaviour == "findfolder":
		msg = e.findFolderReply(cmd.Option, rc)
	case cmd.Behaviour == "getgroup":
		msg = e.avatar.ActiveGroup()
		if msg == "" {
			msg = "none"
		}
	case strings.HasPrefix(cmd.Behaviour, "getenv_"):
		msg = e.envReply(strings.TrimPrefix(cmd.Behaviour, "getenv_"))
	case strings.HasPrefix(cmd.Behaviour, "getdebug_"):
		msg = e.debugReply(strings.TrimPrefix(cmd.Behaviour, "getdebug_"))
	default:
		return false
	}

	e.reply(channel, msg)
	return true
}

// versionNum folds a semantic version into the single integer scripts
// compare, two digits per component.
func versionNum(v *semver.Version) uint64 {
	return v.Major()*1000000 + v.Minor()*10000 + v.Patch()
}

// blacklistReply lists the blacklist entries containing the filter.
func (e *Engine) blacklistReply(filter string) string {
	var matched []string
	for _, name := range e.userBlacklist {
		if filter == "" || strings.Contains(name, filter) {
			matched = append(matched, name)
		}
	}
	return strings.Join(matched, ",")
}

// commandReply lists the known commands containing the filter, excluding
// blacklisted ones.
func (e *Engine) commandReply(filter string) string {
	var out []string
	for _, name := range e.table.List(filter) {
		if e.table.Blacklisted(e.userBlacklist, name, false) {
			continue
		}
		out = append(out, name)
	}
	return strings.Join(out, "/")
}

// outfitReply renders worn clothing layers: a 0/1 digit per layer in fixed
// order, or a single digit when one layer is named.
func (e *Engine) outfitReply(layer string) string {
	worn := make(map[string]bool)
	for _, l := range e.avatar.WornLayers() {
		worn[strings.ToLower(l)] = true
	}
	if layer != "" {
		return bitDigit(worn[strings.ToLower(layer)])
	}
	var b strings.Builder
	for _, l := range clothingLayers {
		b.WriteString(bitDigit(worn[l]))
	}
	return b.String()
}

// attachReply renders occupied attachment points analogously to
// outfitReply.
func (e *Engine) attachReply(point string) string {
	occupied := make(map[string]bool)
	for _, a := range e.avatar.Attachments() {
		occupied[strings.ToLower(a.Point)] = true
	}
	if point != "" {
		return bitDigit(occupied[strings.ToLower(point)])
	}
	var b strings.Builder
	for _, p := range attachPoints {
		b.WriteString(bitDigit(occupied[p]))
	}
	return b.String()
}

func bitDigit(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

// inventoryReply lists the visible subfolders of a shared folder path.
// Folders whose name starts with a dot are private and never listed;
// "(norelay)" folders are hidden from relayed batches.
func (e *Engine) inventoryReply(path string, rc *relayContext) string {
	folder, ok := e.resolveSharedFolder(path)
	if !ok {
		return ""
	}
	var names []string
	for _, sub := range e.inv.Subfolders(folder) {
		if strings.HasPrefix(sub.Name, ".") {
			continue
		}
		if rc.NoRelay() && relayHiddenName(sub.Name) {
			continue
		}
		names = append(names, sub.Name)
	}
	return strings.Join(names, ",")
}

// inventoryWornReply renders getinvworn: the folder's own worn indicator
// first, then one "name|dd" per visible subfolder.
func (e *Engine) inventoryWornReply(path string, rc *relayContext) string {
	folder, ok := e.resolveSharedFolder(path)
	if !ok {
		return ""
	}
	parts := []string{"|" + e.wornIndicator(folder)}
	for _, sub := range e.inv.Subfolders(folder) {
		if strings.HasPrefix(sub.Name, ".") {
			continue
		}
		if rc.NoRelay() && relayHiddenName(sub.Name) {
			continue
		}
		parts = append(parts, sub.Name+"|"+e.wornIndicator(sub.ID))
	}
	return strings.Join(parts, ",")
}

// wornIndicator computes the two-digit worn state of a folder: first digit
// for its direct items, second for the whole subtree. 0 no items, 1 none
// worn, 2 some worn, 3 all worn.
func (e *Engine) wornIndicator(folder uuid.UUID) string {
	direct := wornDigit(e.countWorn(folder, false))
	deep := wornDigit(e.countWorn(folder, true))
	return direct + deep
}

type wornCount struct {
	total, worn int
}

func (e *Engine) countWorn(folder uuid.UUID, recursive bool) wornCount {
	var c wornCount
	for _, item := range e.inv.Items(folder) {
		if item.Kind == world.ItemGesture {
			continue
		}
		c.total++
		if e.itemWorn(item) {
			c.worn++
		}
	}
	if recursive {
		for _, sub := range e.inv.Subfolders(folder) {
			sc := e.countWorn(sub.ID, true)
			c.total += sc.total
			c.worn += sc.worn
		}
	}
	return c
}

func wornDigit(c wornCount) string {
	switch {
	case c.total == 0:
		return "0"
	case c.worn == 0:
		return "1"
	case c.worn < c.total:
		return "2"
	default:
		return "3"
	}
}

// itemWorn reports whether an inventory item is currently on the avatar,
// as an attachment or a clothing layer.
func (e *Engine) itemWorn(item world.Item) bool {
	for _, a := range e.avatar.Attachments() {
		if a.Item.ID == item.ID {
			return true
		}
	}
	if item.Layer != "" {
		for _, l := range e.avatar.WornLayers() {
			if strings.EqualFold(l, item.Layer) {
				return true
			}
		}
	}
	return false
}

// resolveSharedFolder maps an option path to a folder under the shared
// root. An empty path is the root itself.
func (e *Engine) resolveSharedFolder(path string) (uuid.UUID, bool) {
	if path == "" {
		return e.inv.SharedRoot()
	}
	return e.inv.FindFolder(path)
}

// wornPaths resolves getpath/getpathnew: the shared paths of worn items
// selected by attachment point name, clothing layer, or object UUID. An
// empty option selects the issuing object itself. Paths crossing a
// "(norelay)" folder are withheld from relayed batches.
func (e *Engine) wornPaths(issuer uuid.UUID, option string, rc *relayContext) []string {
	opt := strings.ToLower(option)
	var items []world.Item
	switch {
	case option == "":
		if item, ok := e.avatar.ItemOfWornObject(issuer); ok {
			items = append(items, item)
		}
	default:
		if id, err := uuid.Parse(option); err == nil {
			if item, ok := e.avatar.ItemOfWornObject(id); ok {
				items = append(items, item)
			}
			break
		}
		for _, a := range e.avatar.Attachments() {
			if strings.ToLower(a.Point) == opt {
				items = append(items, a.Item)
			}
		}
		if len(items) == 0 {
			for _, a := range e.avatar.Attachments() {
				if strings.EqualFold(a.Item.Layer, option) {
					items = append(items, a.Item)
				}
			}
		}
	}

	var paths []string
	for _, item := range items {
		if folder, ok := e.inv.FolderOfItem(item.ID); ok {
			if p, ok := e.sharedPath(folder); ok {
				if rc.NoRelay() && relayHiddenName(p) {
					continue
				}
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// sharedPath renders a folder's path relative to the shared root.
func (e *Engine) sharedPath(folder uuid.UUID) (string, bool) {
	root, ok := e.inv.SharedRoot()
	if !ok {
		return "", false
	}
	var segs []string
	cur := folder
	for cur != root {
		segs = append([]string{e.inv.FolderName(cur)}, segs...)
		parent, ok := e.inv.Parent(cur)
		if !ok {
			return "", false
		}
		cur = parent
	}
	return strings.Join(segs, "/"), true
}

// findFolderReply searches the shared tree for the first folder whose name
// contains every "&&"-separated part, skipping private and hidden folders.
func (e *Engine) findFolderReply(criteria string, rc *relayContext) string {
	parts := wire.Split(strings.ToLower(criteria), "&&")
	if len(parts) == 0 {
		return ""
	}
	root, ok := e.inv.SharedRoot()
	if !ok {
		return ""
	}
	if folder, ok := e.findFolderUnder(root, parts, rc); ok {
		path, _ := e.sharedPath(folder)
		return path
	}
	return ""
}

func (e *Engine) findFolderUnder(folder uuid.UUID, parts []string, rc *relayContext) (uuid.UUID, bool) {
	for _, sub := range e.inv.Subfolders(folder) {
		if strings.HasPrefix(sub.Name, ".") || strings.HasPrefix(sub.Name, "~") {
			continue
		}
		if rc.NoRelay() && relayHiddenName(sub.Name) {
			continue
		}
		name := strings.ToLower(sub.Name)
		match := true
		for _, part := range parts {
			if !strings.Contains(name, part) {
				match = false
				break
			}
		}
		if match {
			return sub.ID, true
		}
		if found, ok := e.findFolderUnder(sub.ID, parts, rc); ok {
			return found, true
		}
	}
	return uuid.Nil, false
}

// relayHiddenName reports whether a folder name opts out of visibility to
// relayed batches.
func relayHiddenName(name string) bool {
	return strings.Contains(strings.ToLower(name), "(norelay)")
}

// envReply renders the current value of one windlight parameter, values
// joined with "/".
func (e *Engine) envReply(name string) string {
	values, ok := e.avatar.EnvironmentSetting(name)
	if !ok {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, "/")
}

// debugReply renders the current value of one debug setting, whitelist
// permitting.
func (e *Engine) debugReply(name string) string {
	if !e.debugAllowedName(name) {
		return ""
	}
	value, ok := e.avatar.DebugSetting(name)
	if !ok {
		return ""
	}
	return strconv.FormatUint(uint64(value), 10)
}

// debugAllowedName matches a debug setting name against the configured
// whitelist patterns.
func (e *Engine) debugAllowedName(name string) bool {
	lower := strings.ToLower(name)
	for _, g := range e.debugAllowed {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
