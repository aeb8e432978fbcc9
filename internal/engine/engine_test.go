// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlvkit/rlvkit/internal/config"
	"github.com/rlvkit/rlvkit/internal/world"
	"github.com/rlvkit/rlvkit/internal/world/worldtest"
)

func newTestEngine(t *testing.T, fake *worldtest.Fake) *Engine {
	t.Helper()
	return newTestEngineConfig(t, fake, config.Default())
}

func newTestEngineConfig(t *testing.T, fake *worldtest.Fake, cfg config.Config) *Engine {
	t.Helper()
	e, err := New(Params{
		Config:    cfg,
		Inventory: fake,
		Avatar:    fake,
		Actions:   fake,
		Replier:   fake,
		Launch:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	e.SetStarted(true)
	return e
}

func TestHandleCommand_AddRemoveInverse(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	issuer := uuid.New()
	ctx := context.Background()

	assert.True(t, e.CanTpLoc())
	assert.False(t, e.TeleportBlocked())

	require.True(t, e.HandleCommand(ctx, issuer, "@tploc=n"))
	assert.False(t, e.CanTpLoc())
	assert.True(t, e.TeleportBlocked())

	require.True(t, e.HandleCommand(ctx, issuer, "@tploc=y"))
	assert.True(t, e.CanTpLoc())
	assert.False(t, e.TeleportBlocked())
	assert.Empty(t, e.Snapshot())
}

func TestHandleCommand_RemoveWithoutMatchFails(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	assert.False(t, e.HandleCommand(context.Background(), uuid.New(), "@tploc=y"))
}

func TestHandleCommand_Multiplicity(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	issuer := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, issuer, "@sendchat=n"))
	require.True(t, e.HandleCommand(ctx, issuer, "@sendchat=n"))
	assert.Len(t, e.Snapshot(), 2)

	// One removal strips one copy; the restriction stays in force.
	require.True(t, e.HandleCommand(ctx, issuer, "@sendchat=y"))
	assert.Len(t, e.Snapshot(), 1)
	assert.False(t, e.CanSendChat())

	require.True(t, e.HandleCommand(ctx, issuer, "@sendchat=y"))
	assert.True(t, e.CanSendChat())
}

func TestHandleCommand_ClearIsIdempotent(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	issuer := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, issuer, "@tploc=n,sendchat=n,sendim=n"))
	require.Len(t, e.Snapshot(), 3)

	assert.True(t, e.HandleCommand(ctx, issuer, "@clear"))
	assert.Empty(t, e.Snapshot())
	assert.False(t, e.TeleportBlocked())

	// Clearing an empty store still succeeds.
	assert.True(t, e.HandleCommand(ctx, issuer, "@clear"))
	assert.Empty(t, e.Snapshot())
}

func TestHandleCommand_ClearWithFilter(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	issuer := uuid.New()
	other := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, issuer, "@tploc=n,tplm=n,sendchat=n"))
	require.True(t, e.HandleCommand(ctx, other, "@tploc=n"))

	assert.True(t, e.HandleCommand(ctx, issuer, "@clear=tp"))

	// Only the issuer's teleport rules go; the other issuer's stay.
	assert.False(t, e.CanSendChat())
	assert.False(t, e.CanTpLoc())
	snapshot := e.Snapshot()
	assert.Len(t, snapshot, 2)
	for _, entry := range snapshot {
		if entry.Issuer == issuer {
			assert.Equal(t, "sendchat", entry.Behaviour)
		}
	}
}

func TestHandleCommand_BatchOrderAndFailure(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	issuer := uuid.New()
	ctx := context.Background()

	// The bad middle sub-command fails the batch but the rest applied.
	ok := e.HandleCommand(ctx, issuer, "@tploc=n,bogus=n,sendchat=n")
	assert.False(t, ok)
	assert.False(t, e.CanTpLoc())
	assert.False(t, e.CanSendChat())
}

func TestHandleCommand_UnknownBehaviourFails(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	assert.False(t, e.HandleCommand(context.Background(), uuid.New(), "@frobnicate=n"))
	assert.Empty(t, e.Snapshot())
}

func TestHandleCommand_StartupDeferral(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	e.SetStarted(false)
	issuer := uuid.New()
	ctx := context.Background()

	// Everything is accepted but nothing applies.
	assert.True(t, e.HandleCommand(ctx, issuer, "@tploc=n"))
	assert.True(t, e.HandleCommand(ctx, issuer, "@sendchat=n"))
	assert.Empty(t, e.Snapshot())
	assert.Equal(t, 2, e.QueueDepth())
	assert.False(t, e.Ready())

	e.SetStarted(true)
	e.FireCommands(ctx)

	assert.Zero(t, e.QueueDepth())
	assert.True(t, e.Ready())
	assert.False(t, e.CanTpLoc())
	assert.False(t, e.CanSendChat())
}

func TestHandleCommand_ReattachGateDefers(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	item := uuid.New()
	ctx := context.Background()

	e.QueueReattach(item, "spine")
	assert.True(t, e.ReattachPending())

	assert.True(t, e.HandleCommand(ctx, uuid.New(), "@tploc=n"))
	assert.Empty(t, e.Snapshot())

	e.OnAttachmentSettled()
	assert.False(t, e.ReattachPending())
	assert.Contains(t, fake.Calls, "attach "+item.String()+" point=spine replace=false")

	e.FireCommands(ctx)
	assert.False(t, e.CanTpLoc())
}

func TestHandleCommand_BlacklistedAddIsSilentNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Blacklist = "sendim"
	e := newTestEngineConfig(t, worldtest.New(), cfg)
	ctx := context.Background()

	// Reported as success so scripts cannot probe the blacklist, but no
	// restriction lands. The secure variant pools onto the same entry.
	assert.True(t, e.HandleCommand(ctx, uuid.New(), "@sendim=n"))
	assert.True(t, e.HandleCommand(ctx, uuid.New(), "@sendim_sec=n"))
	assert.Empty(t, e.Snapshot())
	assert.True(t, e.CanSendIM(uuid.New()))
}

func TestHandleCommand_NotifySideChannel(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	observer := uuid.New()
	issuer := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, observer, "@notify:2222=add"))
	require.True(t, e.HandleCommand(ctx, issuer, "@tploc=n"))
	require.True(t, e.HandleCommand(ctx, issuer, "@tploc=y"))

	var msgs []string
	for _, r := range fake.Chats {
		if r.Channel == 2222 {
			msgs = append(msgs, r.Message)
		}
	}
	assert.Equal(t, []string{"/tploc=n", "/tploc=y"}, msgs)
}

func TestHandleCommand_NotifyWordFilter(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	observer := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, observer, "@notify:2222;tp=add"))
	require.True(t, e.HandleCommand(ctx, uuid.New(), "@sendchat=n"))
	require.True(t, e.HandleCommand(ctx, uuid.New(), "@tploc=n"))

	require.Len(t, fake.Chats, 1)
	assert.Equal(t, "/tploc=n", fake.Chats[0].Message)
}

func TestHandleCommand_NotifyDoesNotStack(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	observer := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, observer, "@notify:2222=add"))
	assert.False(t, e.HandleCommand(ctx, observer, "@notify:2222=add"))
	assert.Len(t, e.Snapshot(), 1)
}

func TestExceptionScoping(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	secured := uuid.New()
	other := uuid.New()
	friend := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, secured, "@sendim_sec=n"))

	// An exception from another issuer does not defeat the secured
	// restriction.
	require.True(t, e.HandleCommand(ctx, other, "@sendim:"+friend.String()+"=add"))
	assert.False(t, e.CanSendIM(friend))

	// The same issuer's exception does.
	require.True(t, e.HandleCommand(ctx, secured, "@sendim:"+friend.String()+"=add"))
	assert.True(t, e.CanSendIM(friend))
	assert.False(t, e.CanSendIM(uuid.New()))
}

func TestExceptionScoping_Permissive(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	issuer := uuid.New()
	other := uuid.New()
	friend := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, issuer, "@sendim=n"))
	require.True(t, e.HandleCommand(ctx, other, "@sendim:"+friend.String()+"=add"))
	assert.True(t, e.CanSendIM(friend))

	// Permissive upgrades plain restrictions to same-issuer scoping.
	require.True(t, e.HandleCommand(ctx, uuid.New(), "@permissive=n"))
	assert.False(t, e.CanSendIM(friend))

	require.True(t, e.HandleCommand(ctx, issuer, "@sendim:"+friend.String()+"=add"))
	assert.True(t, e.CanSendIM(friend))
}

func TestReplaceIssuer(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	oldID := uuid.New()
	newID := uuid.New()
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, oldID, "@tploc=n,sendchat=n"))
	assert.Equal(t, 2, e.ReplaceIssuer(oldID, newID))

	for _, entry := range e.Snapshot() {
		assert.Equal(t, newID, entry.Issuer)
	}
	assert.False(t, e.CanTpLoc())
}

func TestSideEffects_OnAdd(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, uuid.New(), "@showinv=n"))
	require.True(t, e.HandleCommand(ctx, uuid.New(), "@fly=n"))
	require.True(t, e.HandleCommand(ctx, uuid.New(), "@setenv=n"))
	require.True(t, e.HandleCommand(ctx, uuid.New(), "@temprun=n"))

	assert.Contains(t, fake.Calls, "closeinv")
	assert.Contains(t, fake.Calls, "stopflying")
	assert.Contains(t, fake.Calls, "closeenv")
	assert.Contains(t, fake.Calls, "releaserun")
}

func TestOnStand_StandTPSnapsBack(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	fake.Pos = world.Vector3{X: 10, Y: 20, Z: 30}
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, uuid.New(), "@standtp=n"))
	fake.Pos = world.Vector3{X: 99, Y: 99, Z: 99}
	e.OnStand()

	assert.Contains(t, fake.Calls, "tpto 10.0/20.0/30.0")
}

func TestCensorMessage_OnlyUnderRestriction(t *testing.T) {
	fake := worldtest.New()
	fake.Nearby = []world.AvatarName{{Legacy: "Marine Kelley", Display: "Marine"}}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	msg := "Marine Kelley waves"
	assert.Equal(t, msg, e.CensorMessage(msg))

	require.True(t, e.HandleCommand(ctx, uuid.New(), "@shownames=n"))
	censored := e.CensorMessage(msg)
	assert.NotContains(t, censored, "Marine Kelley")
	assert.Contains(t, censored, "waves")
}

func TestIMBlockedNotices(t *testing.T) {
	cfg := config.Default()
	e := newTestEngineConfig(t, worldtest.New(), cfg)

	assert.Equal(t, cfg.Messages.SendIM, e.SendIMBlockedNotice())
	assert.Equal(t, cfg.Messages.RecvIM, e.RecvIMBlockedNotice())
}

func TestCrunchEmote_EmoteExceptionLiftsTruncation(t *testing.T) {
	e := newTestEngine(t, worldtest.New())
	ctx := context.Background()

	long := "/me smiles warmly and settles into the corner chair without a word spoken aloud"
	assert.Less(t, len(e.CrunchEmote(long)), len(long))

	require.True(t, e.HandleCommand(ctx, uuid.New(), "@emote=add"))
	assert.Equal(t, long, e.CrunchEmote(long))
}
