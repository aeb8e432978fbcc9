// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package wire

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  Command
		isErr bool
	}{
		{
			name: "behaviour and param",
			raw:  "@detach=n",
			want: Command{Behaviour: "detach", Param: "n", HasParam: true},
		},
		{
			name: "behaviour option param",
			raw:  "@sendim:310f10d6-1e9f-4e7e-a2d6-9d877b87de36=add",
			want: Command{Behaviour: "sendim", Option: "310f10d6-1e9f-4e7e-a2d6-9d877b87de36", Param: "add", HasParam: true},
		},
		{
			name: "no equals",
			raw:  "clear",
			want: Command{Behaviour: "clear"},
		},
		{
			name: "clear with filter",
			raw:  "clear=tp",
			want: Command{Behaviour: "clear", Param: "tp", HasParam: true},
		},
		{
			name: "lowercases everything",
			raw:  "@Detach=N",
			want: Command{Behaviour: "detach", Param: "n", HasParam: true},
		},
		{
			name: "splits at first equals only",
			raw:  "setdebug_avatarsex=force",
			want: Command{Behaviour: "setdebug_avatarsex", Param: "force", HasParam: true},
		},
		{
			name: "param keeps second equals verbatim",
			raw:  "notify:2222;word=add=rem",
			want: Command{Behaviour: "notify", Option: "2222;word", Param: "add=rem", HasParam: true},
		},
		{
			name: "option splits at first colon only",
			raw:  "attachthis:restraints/cuffs:extra=n",
			want: Command{Behaviour: "attachthis", Option: "restraints/cuffs:extra", Param: "n", HasParam: true},
		},
		{
			name:  "empty input",
			raw:   "",
			isErr: true,
		},
		{
			name:  "bare at sign",
			raw:   "@",
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("a,b,c", ","))
	assert.Equal(t, []string{"a", "c"}, Split("a,,c", ","))
	assert.Equal(t, []string{"restraints", "cuffs"}, Split("/restraints//cuffs/", "/"))
	assert.Empty(t, Split(",,,", ","))
	assert.Empty(t, Split("", ","))
}

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("2222")
	require.NoError(t, err)
	assert.Equal(t, int32(2222), ch)

	ch, err = ParseChannel("-12")
	require.NoError(t, err)
	assert.Equal(t, int32(-12), ch)

	_, err = ParseChannel("0")
	assert.Error(t, err)

	_, err = ParseChannel("bogus")
	assert.Error(t, err)
}

func TestTruncateReply(t *testing.T) {
	long := strings.Repeat("x", 2000)
	assert.Len(t, TruncateReply(5, long), MaxChatReply)
	assert.Len(t, TruncateReply(-5, long), MaxDialogReply)
	assert.Equal(t, "short", TruncateReply(5, "short"))
}

func TestTruncateReply_RuneBoundary(t *testing.T) {
	// "é" is two bytes; the limit falls in the middle of the last rune.
	long := strings.Repeat("x", MaxDialogReply-1) + "é"
	got := TruncateReply(-5, long)
	assert.Equal(t, MaxDialogReply-1, len(got))
	assert.True(t, utf8.ValidString(got))
}
