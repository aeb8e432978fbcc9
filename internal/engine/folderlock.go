// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Verdict is the tri-state outcome of a folder lock evaluation.
type Verdict int

// Folder lock verdicts, in aggregation-severity order.
const (
	Unlocked Verdict = iota
	LockedWithException
	LockedWithoutException
)

func (v Verdict) String() string {
	switch v {
	case LockedWithException:
		return "locked-with-exception"
	case LockedWithoutException:
		return "locked-without-exception"
	default:
		return "unlocked"
	}
}

// LockDirection selects which folder lock family applies.
type LockDirection string

// Lock directions. Attach locks freeze a folder's contents out of being
// worn; detach locks pin worn contents on.
const (
	LockAttach LockDirection = "attach"
	LockDetach LockDirection = "detach"
)

// EvaluateFolderLock aggregates per-issuer lock verdicts for a folder.
// LockedWithoutException from any issuer wins outright; otherwise any
// LockedWithException wins over Unlocked.
func (e *Engine) EvaluateFolderLock(folder uuid.UUID, dir LockDirection) Verdict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.evaluateFolderLock(folder, dir)
}

func (e *Engine) evaluateFolderLock(folder uuid.UUID, dir LockDirection) Verdict {
	start := time.Now()
	defer func() { folderLockSeconds.Observe(time.Since(start).Seconds()) }()

	verdict := Unlocked
	for _, issuer := range e.store.Issuers() {
		if !e.issuerTargetsFolder(issuer, folder, dir) {
			continue
		}
		switch e.lockVerdictForIssuer(issuer, folder, dir) {
		case LockedWithoutException:
			return LockedWithoutException
		case LockedWithException:
			verdict = LockedWithException
		}
	}
	return verdict
}

// IsFolderLocked reports whether a folder is locked in either direction, or
// sits outside the shared root while a global unshared-wear restriction is
// active.
func (e *Engine) IsFolderLocked(folder uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isFolderLocked(folder)
}

func (e *Engine) isFolderLocked(folder uuid.UUID) bool {
	if e.flags.active["unsharedwear"] || e.flags.active["unsharedunwear"] {
		if !e.underSharedRoot(folder) {
			return true
		}
	}
	return e.evaluateFolderLock(folder, LockAttach) != Unlocked ||
		e.evaluateFolderLock(folder, LockDetach) != Unlocked
}

// issuerTargetsFolder reports whether any of the issuer's lock entries
// resolves to this folder (exact for "this", exact-or-ancestor for
// "allthis"). Exception entries do not select an issuer by themselves.
func (e *Engine) issuerTargetsFolder(issuer, folder uuid.UUID, dir LockDirection) bool {
	this := string(dir) + "this"
	allthis := string(dir) + "allthis"
	for _, entry := range e.store.ForIssuer(issuer) {
		switch entry.Behaviour {
		case this:
			if target, ok := e.lockTargetFolder(issuer, entry.Option); ok && target == folder {
				return true
			}
		case allthis:
			if target, ok := e.lockTargetFolder(issuer, entry.Option); ok {
				if target == folder || e.isAncestor(target, folder) {
					return true
				}
			}
		}
	}
	return false
}

// lockVerdictForIssuer walks from the target folder to the shared root,
// evaluating the issuer's lock and exception entries level by level.
// Exceptions are considered before plain locks at each level. An "allthis"
// lock on a strict ancestor decides immediately; locks at the target itself
// are held until the walk completes so a same-level exception can soften
// them.
func (e *Engine) lockVerdictForIssuer(issuer, folder uuid.UUID, dir LockDirection) Verdict {
	root, ok := e.inv.SharedRoot()
	if !ok {
		return Unlocked
	}
	entries := e.store.ForIssuer(issuer)
	this := string(dir) + "this"
	allthis := string(dir) + "allthis"

	exceptionSeen := false
	lockSeen := false

	cur := folder
	atTarget := true
	for {
		for _, entry := range entries {
			var except bool
			switch entry.Behaviour {
			case this + "_except":
				except = atTarget
			case allthis + "_except":
				except = true
			}
			if !except {
				continue
			}
			if target, ok := e.lockTargetFolder(issuer, entry.Option); ok && target == cur {
				exceptionSeen = true
			}
		}

		for _, entry := range entries {
			if entry.Behaviour != this && entry.Behaviour != allthis {
				continue
			}
			target, ok := e.lockTargetFolder(issuer, entry.Option)
			if !ok || target != cur {
				continue
			}
			if entry.Behaviour == this && !atTarget {
				continue
			}
			if atTarget {
				if !exceptionSeen {
					return LockedWithoutException
				}
				lockSeen = true
				continue
			}
			// allthis on a strict ancestor.
			if exceptionSeen {
				return LockedWithException
			}
			return LockedWithoutException
		}

		if cur == root {
			break
		}
		parent, ok := e.inv.Parent(cur)
		if !ok {
			break
		}
		cur = parent
		atTarget = false
	}

	if lockSeen && exceptionSeen {
		return LockedWithException
	}
	// Selection promised a lock this walk never found. Fail open rather
	// than freeze an unrelated folder, but make the inconsistency visible.
	slog.Warn("folder lock walk found no lock for selecting issuer",
		"issuer", issuer, "folder", folder, "direction", string(dir))
	return Unlocked
}

// lockTargetFolder resolves a lock entry's option to a folder. An empty
// option targets the folder holding the issuing object's own inventory
// item; otherwise the option is a path under the shared root.
func (e *Engine) lockTargetFolder(issuer uuid.UUID, option string) (uuid.UUID, bool) {
	if option == "" {
		item, ok := e.avatar.ItemOfWornObject(issuer)
		if !ok {
			return uuid.Nil, false
		}
		return e.inv.FolderOfItem(item.ID)
	}
	if id, err := uuid.Parse(option); err == nil {
		return id, true
	}
	return e.inv.FindFolder(option)
}

// isAncestor reports whether ancestor is a strict ancestor of folder.
func (e *Engine) isAncestor(ancestor, folder uuid.UUID) bool {
	cur := folder
	for {
		parent, ok := e.inv.Parent(cur)
		if !ok {
			return false
		}
		if parent == ancestor {
			return true
		}
		cur = parent
	}
}

// underSharedRoot reports whether the folder is the shared root or one of
// its descendants.
func (e *Engine) underSharedRoot(folder uuid.UUID) bool {
	root, ok := e.inv.SharedRoot()
	if !ok {
		return false
	}
	return folder == root || e.isAncestor(root, folder)
}
