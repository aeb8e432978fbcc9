// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trail.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Log(ctx, Entry{Issuer: "obj-1", Command: "detach=n", Rule: "detach", Effect: EffectApplied}))
	require.NoError(t, l.Log(ctx, Entry{Issuer: "obj-1", Command: "detach=y", Rule: "detach", Effect: EffectRemoved}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, entries, 2)
	assert.Equal(t, EffectApplied, entries[0].Effect)
	assert.Equal(t, EffectRemoved, entries[1].Effect)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestLogger_DefaultPathUsesStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	l, err := NewLogger("")
	require.NoError(t, err)
	defer l.Close()

	assert.Contains(t, l.Path(), "rlvkit")
	assert.Contains(t, l.Path(), "restrictions.jsonl")
}

func TestLogger_BadDirectory(t *testing.T) {
	_, err := NewLogger(filepath.Join(t.TempDir(), "missing", "trail.jsonl"))
	assert.Error(t, err)
}
