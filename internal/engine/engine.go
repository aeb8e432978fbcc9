// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package engine implements the runtime policy-restriction engine: the
// command interpreter, the permission-query surface consulted throughout the
// client, the folder-lock algorithm, the force-action engine, and the
// garbage collector over the restriction store.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/rlvkit/rlvkit/internal/audit"
	"github.com/rlvkit/rlvkit/internal/chat"
	"github.com/rlvkit/rlvkit/internal/command"
	"github.com/rlvkit/rlvkit/internal/config"
	"github.com/rlvkit/rlvkit/internal/restriction"
	"github.com/rlvkit/rlvkit/internal/wire"
	"github.com/rlvkit/rlvkit/internal/world"
)

// Params carries the engine's collaborators and configuration.
type Params struct {
	Config    config.Config
	Inventory world.Inventory
	Avatar    world.Avatar
	Actions   world.Actions
	Replier   world.Replier
	// Audit is optional; nil disables the mutation trail.
	Audit *audit.Logger
	// Launch seeds the name-anonymizer salt. Zero means time.Now().
	Launch time.Time
}

// Engine owns the one per-session restriction store and everything layered
// on it. All access is serialized behind one mutex boundary: the cached
// flags gate avatar movement and chat, and a partially updated flag set
// would be a security bug, not a glitch.
type Engine struct {
	mu sync.RWMutex

	cfg        config.Config
	store      *restriction.Store
	table      *command.Table
	inv        world.Inventory
	avatar     world.Avatar
	actions    world.Actions
	replier    world.Replier
	audit      *audit.Logger
	anonymizer *chat.Anonymizer

	userBlacklist []string
	debugAllowed  []glob.Glob

	started bool
	queue   []queuedCommand

	reattach reattachRequest

	flags flagSet

	// lastStanding remembers where the avatar last stood, for standtp.
	lastStanding     world.Vector3
	haveLastStanding bool
}

// queuedCommand is one deferred command, kept verbatim.
type queuedCommand struct {
	issuer uuid.UUID
	raw    string
}

// flagSet holds the denormalized booleans mirrored off the store. Every
// mutation path must end in recompute (or recomputeAll); staleness here is a
// correctness bug.
type flagSet struct {
	active          map[string]bool
	teleportBlocked bool
}

// trackedBehaviours are the blanket restrictions cached as flags. Behaviours
// with a secure variant count either form.
var trackedBehaviours = []string{
	"detach", "addattach", "remattach",
	"showinv", "unsharedwear", "unsharedunwear",
	"sendchat", "recvchat", "sendchannel",
	"sendim", "recvim", "startim", "emote",
	"shownames", "shownametags",
	"showloc", "showworldmap", "showminimap",
	"setenv", "setdebug",
	"edit", "rez", "fly", "temprun", "alwaysrun",
	"unsit", "sit", "standtp", "sittp",
	"tploc", "tplm", "tplure",
	"fartouch", "interact", "touchall", "touchworld", "touchattach",
	"permissive",
}

// New creates an engine. The store starts empty; restrictions arrive only
// as live in-world commands.
func New(p Params) (*Engine, error) {
	if p.Inventory == nil || p.Avatar == nil || p.Actions == nil || p.Replier == nil {
		return nil, oops.Errorf("engine requires inventory, avatar, actions, and replier collaborators")
	}
	if p.Launch.IsZero() {
		p.Launch = time.Now()
	}

	table := command.NewTable()

	blacklist := p.Config.Blacklist
	if p.Config.BlacklistPreset != "" {
		if preset, ok := table.Preset(p.Config.BlacklistPreset); ok {
			if blacklist != "" {
				blacklist += ","
			}
			blacklist += preset
		}
	}

	debugAllowed := make([]glob.Glob, 0, len(p.Config.DebugWhitelist))
	for _, pattern := range p.Config.DebugWhitelist {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, oops.With("pattern", pattern).Wrapf(err, "compile debug whitelist pattern")
		}
		debugAllowed = append(debugAllowed, g)
	}

	e := &Engine{
		cfg:           p.Config,
		store:         restriction.New(),
		table:         table,
		inv:           p.Inventory,
		avatar:        p.Avatar,
		actions:       p.Actions,
		replier:       p.Replier,
		audit:         p.Audit,
		anonymizer:    chat.NewAnonymizer(p.Launch),
		userBlacklist: command.ParseBlacklist(blacklist),
		debugAllowed:  debugAllowed,
		flags:         flagSet{active: make(map[string]bool, len(trackedBehaviours))},
	}
	e.recomputeAll()
	return e, nil
}

// SetStarted flips the startup gate. Hosts call SetStarted(true) once the
// client has fully started, then FireCommands to drain whatever queued.
func (e *Engine) SetStarted(started bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = started
}

// Started reports whether the engine applies commands live.
func (e *Engine) Started() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

// Blacklist returns the active user blacklist entries.
func (e *Engine) Blacklist() []string {
	out := make([]string, len(e.userBlacklist))
	copy(out, e.userBlacklist)
	return out
}

// Snapshot returns a copy of every active restriction, in insertion order.
func (e *Engine) Snapshot() []restriction.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.All()
}

// --- cached flags ---

// recompute refreshes the cached flag for one behaviour family plus the
// teleport composite. Must be called from every mutation path.
func (e *Engine) recompute(behaviour string) {
	base := behaviour
	base = strings.TrimSuffix(base, "_sec")
	for _, tracked := range trackedBehaviours {
		if tracked == base {
			e.flags.active[tracked] = e.store.Contains(tracked) || e.store.Contains(tracked+"_sec")
			break
		}
	}
	e.recomputeTeleport()
	restrictionsActiveGauge.Set(float64(e.store.Len()))
}

// recomputeAll refreshes every cached flag. Used after clears, replaces, and
// garbage collection, where anything may have changed.
func (e *Engine) recomputeAll() {
	for _, tracked := range trackedBehaviours {
		e.flags.active[tracked] = e.store.Contains(tracked) || e.store.Contains(tracked+"_sec")
	}
	e.recomputeTeleport()
	restrictionsActiveGauge.Set(float64(e.store.Len()))
}

// recomputeTeleport refreshes the composite teleport-blocked flag, which
// also depends on external sitting state: a seated avatar under unsit
// cannot teleport away from the seat.
func (e *Engine) recomputeTeleport() {
	e.flags.teleportBlocked = e.flags.active["tploc"] ||
		e.flags.active["tplm"] ||
		e.flags.active["tplure"] ||
		(e.flags.active["unsit"] && e.avatar.Sitting())
}

// --- store mutations ---

// addRestriction validates and inserts one restriction, running the
// associated side effects. A blacklist hit is reported as success without
// inserting: the issuing script cannot distinguish a policy no-op from
// success, which is deliberate (revealing why would leak bypass hints).
func (e *Engine) addRestriction(ctx context.Context, issuer uuid.UUID, behaviour, option, raw string) bool {
	entry := restriction.Entry{Issuer: issuer, Behaviour: behaviour, Option: option}
	rule := entry.Rule()

	if !e.knownBehaviour(behaviour) {
		return false
	}

	// notify registrations do not stack: re-adding the same channel would
	// double every side-channel report.
	if behaviour == "notify" && !e.isAllowed(issuer, rule) {
		e.auditLog(ctx, issuer, raw, rule, audit.EffectRefused)
		return false
	}

	if e.table.Blacklisted(e.userBlacklist, behaviour, false) {
		slog.DebugContext(ctx, "restriction blacklisted", "behaviour", behaviour, "issuer", issuer)
		e.auditLog(ctx, issuer, raw, rule, audit.EffectBlacklisted)
		recordCommand(outcomeBlacklisted)
		return true
	}

	e.notifyObservers(rule, "=n")
	e.preAddEffects(behaviour)

	e.store.Add(entry)
	e.recompute(behaviour)

	e.postAddEffects(behaviour)
	e.auditLog(ctx, issuer, raw, rule, audit.EffectApplied)
	recordCommand(outcomeApplied)
	return true
}

// removeRestriction removes one exactly-matching restriction.
func (e *Engine) removeRestriction(ctx context.Context, issuer uuid.UUID, behaviour, option, raw string) bool {
	rule := restriction.Entry{Behaviour: behaviour, Option: option}.Rule()
	e.notifyObservers(rule, "=y")

	if !e.store.Remove(issuer, behaviour, option) {
		return false
	}
	e.recompute(behaviour)
	e.auditLog(ctx, issuer, raw, rule, audit.EffectRemoved)
	recordCommand(outcomeRemoved)
	return true
}

// clearRestrictions removes every restriction of the issuer whose rule
// contains the filter. Always succeeds, even when nothing matched.
func (e *Engine) clearRestrictions(ctx context.Context, issuer uuid.UUID, filter string) bool {
	removed := e.store.RemoveMatching(issuer, filter)
	for _, entry := range removed {
		e.notifyObservers(entry.Rule(), "=y")
	}
	e.recomputeAll()
	e.auditLog(ctx, issuer, "clear="+filter, "", audit.EffectCleared)
	recordCommand(outcomeCleared)
	return true
}

// ReplaceIssuer moves every restriction from oldIssuer to newIssuer. Used
// when an object is re-rezzed under a new UUID.
func (e *Engine) ReplaceIssuer(oldIssuer, newIssuer uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.store.Replace(oldIssuer, newIssuer)
	if n > 0 {
		e.recomputeAll()
	}
	return n
}

// knownBehaviour reports whether the behaviour is a registered command,
// directly or through its canonical underscore-truncated form.
func (e *Engine) knownBehaviour(behaviour string) bool {
	return e.table.Known(behaviour) || e.table.Known(command.Canonical(behaviour))
}

// --- notify side channel ---

// notifyObservers reports a rule change on every registered notify channel.
// A registration is "notify:<channel>[;word]"; the word filters which rules
// are reported.
func (e *Engine) notifyObservers(rule, suffix string) {
	for _, entry := range e.store.All() {
		if entry.Behaviour != "notify" || entry.Option == "" {
			continue
		}
		parts := strings.SplitN(entry.Option, ";", 2)
		channel, err := wire.ParseChannel(parts[0])
		if err != nil {
			continue
		}
		if len(parts) == 2 && parts[1] != "" && !strings.Contains(rule, parts[1]) {
			continue
		}
		e.reply(channel, "/"+rule+suffix)
	}
}

// reply sends a message on a reply channel, clipped to the transport limit.
func (e *Engine) reply(channel int32, msg string) {
	msg = wire.TruncateReply(channel, msg)
	if channel > 0 {
		e.replier.Chat(channel, msg)
		return
	}
	e.replier.DialogReply(channel, msg)
}

// --- side effects tied to specific behaviours ---

// preAddEffects runs the one-shot actions a behaviour triggers before it is
// stored.
func (e *Engine) preAddEffects(behaviour string) {
	switch behaviour {
	case "showinv":
		e.actions.CloseInventoryWindows()
	case "fly":
		e.actions.StopFlying()
	case "temprun", "alwaysrun":
		e.actions.ReleaseRun()
	case "setenv":
		e.actions.CloseEnvironmentWindows()
	}
}

// postAddEffects runs the actions a behaviour triggers after insertion.
func (e *Engine) postAddEffects(behaviour string) {
	switch {
	case behaviour == "standtp":
		if !e.avatar.Sitting() {
			e.lastStanding = e.avatar.Position()
			e.haveLastStanding = true
		}
	case strings.HasPrefix(behaviour, "detach") || strings.HasPrefix(behaviour, "attach") ||
		behaviour == "addattach" || behaviour == "remattach":
		e.actions.RefreshAttachmentHUD()
	}
}

// OnStand is the host hook fired after the avatar stands up. Under a
// standtp restriction the avatar snaps back to where it last stood
// unrestricted.
func (e *Engine) OnStand() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.flags.active["standtp"] || !e.haveLastStanding {
		return
	}
	e.actions.TeleportTo(e.lastStanding)
}

// --- audit ---

func (e *Engine) auditLog(ctx context.Context, issuer uuid.UUID, cmd, rule string, effect audit.Effect) {
	if e.audit == nil {
		return
	}
	err := e.audit.Log(ctx, audit.Entry{
		Issuer:  issuer.String(),
		Command: cmd,
		Rule:    rule,
		Effect:  effect,
	})
	if err != nil {
		slog.WarnContext(ctx, "audit log failed", "error", err)
	}
}

// --- chat transform surface ---

// CrunchEmote filters an outbound chat message under the active send-chat
// restriction, honoring the untruncated-emotes override and any active
// emote exception.
func (e *Engine) CrunchEmote(msg string) string {
	e.mu.RLock()
	untruncated := e.cfg.Emote.Untruncated || e.store.Contains("emote")
	e.mu.RUnlock()
	return chat.CrunchEmote(msg, e.cfg.Emote.TruncateLimit, chat.EmoteOptions{
		Untruncated: untruncated,
		AllowOOC:    e.cfg.AllowOOC,
	})
}

// SendIMBlockedNotice is the canned text delivered to the would-be
// recipient when an outbound IM is suppressed by a sendim restriction.
func (e *Engine) SendIMBlockedNotice() string {
	return e.cfg.Messages.SendIM
}

// RecvIMBlockedNotice is the canned text auto-replied to a sender whose IM
// was hidden by a recvim restriction.
func (e *Engine) RecvIMBlockedNotice() string {
	return e.cfg.Messages.RecvIM
}

// DummyName returns the deterministic placeholder for an avatar name.
func (e *Engine) DummyName(name string) string {
	return e.anonymizer.DummyName(name, chat.Audible)
}

// CensorMessage replaces every nearby avatar's names in msg with their
// dummy names. A no-op unless a name-hiding restriction is active.
func (e *Engine) CensorMessage(msg string) string {
	if !e.flagActive("shownames") {
		return msg
	}
	nearby := e.avatar.NearbyAvatars()
	names := make([]chat.Name, 0, len(nearby))
	for _, n := range nearby {
		names = append(names, chat.Name{Legacy: n.Legacy, Display: n.Display})
	}
	return e.anonymizer.CensorMessage(msg, names)
}

// parseFloats splits an option like "0.5/0.2/0.8" (or ";"-separated) into
// floats, dropping anything unparsable.
func parseFloats(option string) []float64 {
	sep := "/"
	if !strings.Contains(option, "/") {
		sep = ";"
	}
	var out []float64
	for _, tok := range wire.Split(option, sep) {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
