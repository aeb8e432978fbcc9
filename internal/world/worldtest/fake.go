// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package worldtest provides map-backed fakes of the world capability
// interfaces for unit and integration tests.
package worldtest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rlvkit/rlvkit/internal/world"
)

// Reply is one recorded channel reply.
type Reply struct {
	Channel int32
	Message string
}

// Fake implements world.Inventory, world.Avatar, world.Actions, and
// world.Replier over plain maps. Zero synchronization; tests drive the
// engine from one goroutine like the host client does.
type Fake struct {
	Root       uuid.UUID
	parents    map[uuid.UUID]uuid.UUID
	children   map[uuid.UUID][]world.Folder
	items      map[uuid.UUID][]world.Item
	names      map[uuid.UUID]string
	itemFolder map[uuid.UUID]uuid.UUID

	Objects   map[uuid.UUID]bool
	Worn      []world.Attachment
	Layers    []string
	SittingOn uuid.UUID
	Seated    bool
	Pos       world.Vector3
	ObjPos    map[uuid.UUID]world.Vector3
	Nearby    []world.AvatarName
	Group     string

	// Recorded side effects and replies, in call order.
	Calls   []string
	Chats   []Reply
	Dialogs []Reply

	EnvSettings   map[string][]float64
	DebugSettings map[string]uint32
}

// New creates a fake world with a shared root folder named "#RLV".
func New() *Fake {
	f := &Fake{
		parents:       make(map[uuid.UUID]uuid.UUID),
		children:      make(map[uuid.UUID][]world.Folder),
		items:         make(map[uuid.UUID][]world.Item),
		names:         make(map[uuid.UUID]string),
		itemFolder:    make(map[uuid.UUID]uuid.UUID),
		Objects:       make(map[uuid.UUID]bool),
		ObjPos:        make(map[uuid.UUID]world.Vector3),
		EnvSettings:   make(map[string][]float64),
		DebugSettings: make(map[string]uint32),
	}
	f.Root = f.AddFolder(uuid.Nil, "#RLV")
	return f
}

// AddFolder creates a folder under parent (uuid.Nil for the tree root) and
// returns its id.
func (f *Fake) AddFolder(parent uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	f.names[id] = name
	if parent != uuid.Nil {
		f.parents[id] = parent
		f.children[parent] = append(f.children[parent], world.Folder{ID: id, Name: name})
	}
	return id
}

// AddItem places an item in a folder.
func (f *Fake) AddItem(folder uuid.UUID, item world.Item) {
	f.items[folder] = append(f.items[folder], item)
	f.itemFolder[item.ID] = folder
}

// Wear marks an item as worn at a point, backed by a live in-world object.
func (f *Fake) Wear(item world.Item, point string, object uuid.UUID) {
	f.Worn = append(f.Worn, world.Attachment{Point: point, Object: object, Item: item})
	f.Objects[object] = true
}

// --- world.Inventory ---

// SharedRoot returns the "#RLV" folder.
func (f *Fake) SharedRoot() (uuid.UUID, bool) {
	return f.Root, f.Root != uuid.Nil
}

// Parent returns a folder's parent.
func (f *Fake) Parent(folder uuid.UUID) (uuid.UUID, bool) {
	p, ok := f.parents[folder]
	return p, ok
}

// Subfolders returns a folder's direct child folders.
func (f *Fake) Subfolders(folder uuid.UUID) []world.Folder {
	return f.children[folder]
}

// Items returns a folder's direct child items.
func (f *Fake) Items(folder uuid.UUID) []world.Item {
	return f.items[folder]
}

// FolderName returns a folder's display name.
func (f *Fake) FolderName(folder uuid.UUID) string {
	return f.names[folder]
}

// FindFolder resolves a slash path under the shared root, matching names
// case-insensitively with prefix fallback.
func (f *Fake) FindFolder(path string) (uuid.UUID, bool) {
	cur := f.Root
	if cur == uuid.Nil {
		return uuid.Nil, false
	}
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		if seg == "" {
			continue
		}
		next := uuid.Nil
		for _, child := range f.children[cur] {
			name := strings.ToLower(child.Name)
			if name == seg {
				next = child.ID
				break
			}
			if next == uuid.Nil && strings.HasPrefix(name, seg) {
				next = child.ID
			}
		}
		if next == uuid.Nil {
			return uuid.Nil, false
		}
		cur = next
	}
	return cur, true
}

// FolderOfItem returns the folder containing an item.
func (f *Fake) FolderOfItem(item uuid.UUID) (uuid.UUID, bool) {
	folder, ok := f.itemFolder[item]
	return folder, ok
}

// --- world.Avatar ---

// ObjectExists reports whether the object id is live.
func (f *Fake) ObjectExists(id uuid.UUID) bool {
	return f.Objects[id]
}

// Attachments returns the worn attachments.
func (f *Fake) Attachments() []world.Attachment {
	return f.Worn
}

// WornLayers returns the worn clothing layers.
func (f *Fake) WornLayers() []string {
	return f.Layers
}

// ItemOfWornObject maps a worn object to its inventory item.
func (f *Fake) ItemOfWornObject(object uuid.UUID) (world.Item, bool) {
	for _, a := range f.Worn {
		if a.Object == object {
			return a.Item, true
		}
	}
	return world.Item{}, false
}

// Sitting reports seated state.
func (f *Fake) Sitting() bool { return f.Seated }

// SitObject returns the current seat.
func (f *Fake) SitObject() (uuid.UUID, bool) {
	return f.SittingOn, f.Seated
}

// Position returns the avatar position.
func (f *Fake) Position() world.Vector3 { return f.Pos }

// ObjectPosition returns an object's position.
func (f *Fake) ObjectPosition(id uuid.UUID) (world.Vector3, bool) {
	p, ok := f.ObjPos[id]
	return p, ok
}

// NearbyAvatars returns the configured nearby avatars.
func (f *Fake) NearbyAvatars() []world.AvatarName { return f.Nearby }

// ActiveGroup returns the configured active group.
func (f *Fake) ActiveGroup() string { return f.Group }

// EnvironmentSetting returns a stored windlight parameter.
func (f *Fake) EnvironmentSetting(name string) ([]float64, bool) {
	v, ok := f.EnvSettings[name]
	return v, ok
}

// DebugSetting returns a stored debug setting.
func (f *Fake) DebugSetting(name string) (uint32, bool) {
	v, ok := f.DebugSettings[name]
	return v, ok
}

// --- world.Actions ---

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// DetachObject records the detach and removes the attachment.
func (f *Fake) DetachObject(object uuid.UUID) {
	f.record("detach %s", object)
	for i, a := range f.Worn {
		if a.Object == object {
			f.Worn = append(f.Worn[:i], f.Worn[i+1:]...)
			break
		}
	}
	delete(f.Objects, object)
}

// AttachItem records the attach request.
func (f *Fake) AttachItem(item uuid.UUID, point string, replace bool) {
	f.record("attach %s point=%s replace=%t", item, point, replace)
}

// WearItem records the wear request.
func (f *Fake) WearItem(item uuid.UUID) {
	f.record("wear %s", item)
}

// RemoveLayer records the layer removal and unwears it.
func (f *Fake) RemoveLayer(layer string) {
	f.record("removelayer %s", layer)
	for i, l := range f.Layers {
		if l == layer {
			f.Layers = append(f.Layers[:i], f.Layers[i+1:]...)
			break
		}
	}
}

// ActivateGesture records the gesture activation.
func (f *Fake) ActivateGesture(item uuid.UUID) {
	f.record("gesture %s", item)
}

// Sit seats the avatar on the target.
func (f *Fake) Sit(target uuid.UUID) {
	f.record("sit %s", target)
	f.Seated = true
	f.SittingOn = target
}

// Stand stands the avatar up.
func (f *Fake) Stand() {
	f.record("stand")
	f.Seated = false
	f.SittingOn = uuid.Nil
}

// TeleportTo moves the avatar.
func (f *Fake) TeleportTo(pos world.Vector3) {
	f.record("tpto %.1f/%.1f/%.1f", pos.X, pos.Y, pos.Z)
	f.Pos = pos
}

// ActivateGroup records the group activation.
func (f *Fake) ActivateGroup(name string) {
	f.record("setgroup %s", name)
	f.Group = name
}

// SetEnvironment stores the windlight parameter.
func (f *Fake) SetEnvironment(name string, values []float64) error {
	f.record("setenv %s", name)
	f.EnvSettings[name] = values
	return nil
}

// SetDebug stores the debug setting.
func (f *Fake) SetDebug(name string, value uint32) error {
	f.record("setdebug %s=%d", name, value)
	f.DebugSettings[name] = value
	return nil
}

// SetRotation records the rotation request.
func (f *Fake) SetRotation(radians float64) {
	f.record("setrot %.4f", radians)
}

// AdjustHeight records the height adjustment.
func (f *Fake) AdjustHeight(delta float64) {
	f.record("adjustheight %.2f", delta)
}

// StopFlying records the fly stop.
func (f *Fake) StopFlying() { f.record("stopflying") }

// ReleaseRun records the run release.
func (f *Fake) ReleaseRun() { f.record("releaserun") }

// CloseInventoryWindows records the window close.
func (f *Fake) CloseInventoryWindows() { f.record("closeinv") }

// CloseEnvironmentWindows records the window close.
func (f *Fake) CloseEnvironmentWindows() { f.record("closeenv") }

// RefreshAttachmentHUD records the HUD refresh.
func (f *Fake) RefreshAttachmentHUD() { f.record("refreshhud") }

// --- world.Replier ---

// Chat records a chat reply.
func (f *Fake) Chat(channel int32, message string) {
	f.Chats = append(f.Chats, Reply{Channel: channel, Message: message})
}

// DialogReply records a dialog reply.
func (f *Fake) DialogReply(channel int32, message string) {
	f.Dialogs = append(f.Dialogs, Reply{Channel: channel, Message: message})
}
