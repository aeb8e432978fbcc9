// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package world declares the narrow capability interfaces through which the
// restriction engine reaches the rest of the client: the inventory tree, the
// avatar and object model, fire-and-forget side-effect actions, and the chat
// channel used for replies. The engine never owns any of this state; hosts
// implement these interfaces, and worldtest provides map-backed fakes.
package world

import (
	"github.com/google/uuid"
)

// Vector3 is a position in region or global coordinates.
type Vector3 struct {
	X, Y, Z float64
}

// ItemKind discriminates inventory item types the engine cares about.
type ItemKind int

// Inventory item kinds.
const (
	ItemObject ItemKind = iota
	ItemClothing
	ItemBodypart
	ItemGesture
)

// Folder is an inventory folder.
type Folder struct {
	ID   uuid.UUID
	Name string
}

// Item is an inventory item.
type Item struct {
	ID    uuid.UUID
	Name  string
	Kind  ItemKind
	Layer string // clothing layer ("shirt", "gloves", ...) for ItemClothing/ItemBodypart
	NoMod bool
}

// Attachment is one worn object: the attachment point name, the in-world
// object id, and the inventory item it was attached from.
type Attachment struct {
	Point  string
	Object uuid.UUID
	Item   Item
}

// AvatarName is a nearby avatar's legacy and display name.
type AvatarName struct {
	Legacy  string
	Display string
}

// Inventory is the externally-owned inventory tree. Folder identity is
// stable for the session; the engine compares ids, never pointers.
type Inventory interface {
	// SharedRoot returns the well-known folder under which RLV-manageable
	// items live. ok is false when the shared root does not exist.
	SharedRoot() (uuid.UUID, bool)
	// Parent returns the parent folder id; ok is false at the tree root.
	Parent(folder uuid.UUID) (uuid.UUID, bool)
	// Subfolders lists the direct child folders.
	Subfolders(folder uuid.UUID) []Folder
	// Items lists the direct child items.
	Items(folder uuid.UUID) []Item
	// FolderName returns the display name of a folder.
	FolderName(folder uuid.UUID) string
	// FindFolder resolves a slash-separated path under the shared root,
	// matching folder names case-insensitively.
	FindFolder(path string) (uuid.UUID, bool)
	// FolderOfItem returns the folder containing an item.
	FolderOfItem(item uuid.UUID) (uuid.UUID, bool)
}

// Avatar exposes the controlling avatar's live state and world lookups.
type Avatar interface {
	// ObjectExists reports whether an in-world object id resolves to a live
	// object. The garbage collector keys off this.
	ObjectExists(id uuid.UUID) bool
	// Attachments enumerates currently worn attachments.
	Attachments() []Attachment
	// WornLayers enumerates currently worn clothing layer names.
	WornLayers() []string
	// ItemOfWornObject maps a worn in-world object back to its inventory item.
	ItemOfWornObject(object uuid.UUID) (Item, bool)
	// Sitting reports whether the avatar is seated.
	Sitting() bool
	// SitObject returns the object currently sat on.
	SitObject() (uuid.UUID, bool)
	// Position returns the avatar's global position.
	Position() Vector3
	// ObjectPosition returns an object's global position.
	ObjectPosition(id uuid.UUID) (Vector3, bool)
	// NearbyAvatars lists avatars close enough to appear in chat.
	NearbyAvatars() []AvatarName
	// ActiveGroup returns the avatar's active group name, or "".
	ActiveGroup() string
	// EnvironmentSetting returns the current values of one named windlight
	// parameter.
	EnvironmentSetting(name string) ([]float64, bool)
	// DebugSetting returns the current value of one debug setting.
	DebugSetting(name string) (uint32, bool)
}

// Actions are the fire-and-forget side effects the engine may trigger. None
// of them block or report completion; failures surface later as world state.
type Actions interface {
	DetachObject(object uuid.UUID)
	AttachItem(item uuid.UUID, point string, replace bool)
	WearItem(item uuid.UUID)
	RemoveLayer(layer string)
	ActivateGesture(item uuid.UUID)
	Sit(target uuid.UUID)
	Stand()
	TeleportTo(pos Vector3)
	ActivateGroup(name string)
	// SetEnvironment applies one named windlight parameter.
	SetEnvironment(name string, values []float64) error
	// SetDebug applies one whitelisted debug setting (U32 values only).
	SetDebug(name string, value uint32) error
	SetRotation(radians float64)
	AdjustHeight(delta float64)

	// One-shot UI/state side effects fired synchronously by specific adds.
	StopFlying()
	ReleaseRun()
	CloseInventoryWindows()
	CloseEnvironmentWindows()
	RefreshAttachmentHUD()
}

// Replier delivers command replies. Positive channels go out as ordinary
// chat, negative channels as private dialog responses; the engine enforces
// the per-direction length caps and never replies on channel 0.
type Replier interface {
	Chat(channel int32, message string)
	DialogReply(channel int32, message string)
}
