// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlvkit/rlvkit/internal/world/worldtest"
)

func TestGarbageCollect_SweepsDeadIssuers(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	ctx := context.Background()

	live := uuid.New()
	dead := uuid.New()
	fake.Objects[live] = true

	require.True(t, e.HandleCommand(ctx, live, "@sendchat=n"))
	require.True(t, e.HandleCommand(ctx, dead, "@tploc=n,tplm=n"))

	assert.True(t, e.GarbageCollect(ctx, false))

	snapshot := e.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, live, snapshot[0].Issuer)
	assert.True(t, e.CanTpLoc())
	assert.False(t, e.CanSendChat())

	// Nothing left to sweep.
	assert.False(t, e.GarbageCollect(ctx, false))
}

func TestGarbageCollect_NullIssuerSurvivesOrdinarySweep(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	ctx := context.Background()

	require.True(t, e.HandleCommand(ctx, uuid.Nil, "@sendchat=n"))

	assert.False(t, e.GarbageCollect(ctx, false))
	assert.Len(t, e.Snapshot(), 1)

	assert.True(t, e.GarbageCollect(ctx, true))
	assert.Empty(t, e.Snapshot())
	assert.True(t, e.CanSendChat())
}

func TestGarbageCollect_FiresNotify(t *testing.T) {
	fake := worldtest.New()
	e := newTestEngine(t, fake)
	ctx := context.Background()

	observer := uuid.New()
	fake.Objects[observer] = true
	dead := uuid.New()

	require.True(t, e.HandleCommand(ctx, observer, "@notify:2222=add"))
	require.True(t, e.HandleCommand(ctx, dead, "@tploc=n"))

	require.True(t, e.GarbageCollect(ctx, false))
	last := fake.Chats[len(fake.Chats)-1]
	assert.Equal(t, int32(2222), last.Channel)
	assert.Equal(t, "/tploc=y", last.Message)
}
