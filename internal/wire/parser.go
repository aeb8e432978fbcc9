// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package wire implements the command grammar spoken by in-world scripted
// objects: "@behaviour[:option]=param", optionally comma-joined into batches.
package wire

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Error codes for wire parsing failures.
const (
	CodeEmptyCommand     = "EMPTY_COMMAND"
	CodeChannelForbidden = "CHANNEL_FORBIDDEN"
	CodeChannelInvalid   = "CHANNEL_INVALID"
)

// Reply size limits imposed by the chat transport.
const (
	// MaxChatReply is the longest message a positive channel can carry.
	MaxChatReply = 1023
	// MaxDialogReply is the longest message a negative channel can carry.
	MaxDialogReply = 255
)

// Command is one parsed wire command. Behaviour and Option are split from
// the left of the first "=", Param is everything right of it verbatim.
// HasParam distinguishes "clear" (no "=") from "clear=" (empty param).
type Command struct {
	Behaviour string
	Option    string
	Param     string
	HasParam  bool
}

// Parse splits a raw command into behaviour, option, and param. The whole
// input is lower-cased first; the grammar is case-insensitive. The param is
// kept verbatim (it may itself contain "=", ":" or any other byte). A leading
// "@" is accepted and stripped.
func Parse(raw string) (Command, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return Command{}, oops.Code(CodeEmptyCommand).Errorf("no command provided")
	}

	var cmd Command
	if idx := strings.Index(s, "="); idx >= 0 {
		cmd.Param = s[idx+1:]
		cmd.HasParam = true
		s = s[:idx]
	}

	if idx := strings.Index(s, ":"); idx >= 0 {
		cmd.Option = s[idx+1:]
		s = s[:idx]
	}
	cmd.Behaviour = s
	return cmd, nil
}

// Split returns the non-empty tokens of s separated by sep. Consecutive
// separators collapse; a string of only separators yields no tokens. Used for
// comma-joined batches, slash-joined inventory paths, and semicolon-joined
// notify channel/filter pairs.
func Split(s string, sep string) []string {
	parts := strings.Split(s, sep)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// ParseChannel parses a reply channel number. Channel 0 is always rejected:
// it is the public chat channel and answering there would let an object make
// the avatar speak.
func ParseChannel(param string) (int32, error) {
	n, err := strconv.ParseInt(param, 10, 32)
	if err != nil {
		return 0, oops.Code(CodeChannelInvalid).With("param", param).
			Errorf("reply channel is not numeric")
	}
	if n == 0 {
		return 0, oops.Code(CodeChannelForbidden).
			Errorf("reply channel 0 is forbidden")
	}
	return int32(n), nil
}

// TruncateReply clips a reply message to the transport limit for the channel
// direction: positive channels are ordinary chat, negative channels are
// private dialog responses.
func TruncateReply(channel int32, msg string) string {
	limit := MaxChatReply
	if channel < 0 {
		limit = MaxDialogReply
	}
	if len(msg) <= limit {
		return msg
	}
	// Back off to a rune boundary so the clip never splits a multi-byte
	// character.
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
