// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package chat holds the pure text transforms the engine applies to chat
// traffic while restrictions are active: emote crunching, avatar name
// obfuscation, message censoring, and the legacy replace-all helper.
package chat

import (
	"strings"
	"time"
)

// Rejected replaces a message that a chat restriction refuses to let
// through.
const Rejected = "..."

// maxGestureLen is the longest "/..." gesture trigger that passes through a
// send-chat restriction.
const maxGestureLen = 7

// emoteForbidden are the characters that disqualify an emote outright:
// quoting or parenthesising makes an emote a covert way to speak.
var emoteForbidden = []string{`"`, "(", ")", "*", "=", "^", "_", "?", "~", " -", "- "}

// EmoteOptions carries the overrides consulted while crunching.
type EmoteOptions struct {
	// Untruncated skips emote truncation (config override or an active
	// emote exception).
	Untruncated bool
	// AllowOOC lets "(( ... ))" out-of-character messages through.
	AllowOOC bool
}

// CrunchEmote filters one outbound chat message under a send-chat
// restriction. Emotes ("/me ...") survive unless they contain forbidden
// punctuation; they are truncated at the first period or at limit
// characters, whichever comes first. Short "/" gesture triggers pass.
// Anything else must be an OOC "((...))" message, and only when allowed.
func CrunchEmote(msg string, limit int, opts EmoteOptions) string {
	switch {
	case strings.HasPrefix(msg, "/me ") || strings.HasPrefix(msg, "/me'"):
		for _, bad := range emoteForbidden {
			if strings.Contains(msg, bad) {
				return Rejected
			}
		}
		if opts.Untruncated {
			return msg
		}
		cut := len(msg)
		if idx := strings.Index(msg, "."); idx >= 0 && idx+1 < cut {
			cut = idx + 1
		}
		if limit > 0 && limit < cut {
			cut = limit
		}
		return msg[:cut]

	case strings.HasPrefix(msg, "/"):
		if len(msg) <= maxGestureLen {
			return msg
		}
		return Rejected

	case strings.HasPrefix(msg, "((") && strings.HasSuffix(msg, "))"):
		if opts.AllowOOC {
			return msg
		}
		return Rejected

	default:
		return Rejected
	}
}

// dummyNames are the canned placeholder phrases a hidden avatar name maps
// onto. The table length feeds the hash modulus; do not reorder within a
// release, transcripts rely on the mapping staying stable for a session.
var dummyNames = [28]string{
	"A resident",
	"This resident",
	"That resident",
	"An individual",
	"This individual",
	"That individual",
	"A person",
	"This person",
	"That person",
	"A stranger",
	"This stranger",
	"That stranger",
	"A being",
	"This being",
	"That being",
	"A soul",
	"This soul",
	"That soul",
	"A presence",
	"This presence",
	"That presence",
	"A silhouette",
	"This silhouette",
	"That silhouette",
	"Somebody",
	"Someone close by",
	"A passer-by",
	"A figure",
}

// Audibility grades how well a censored speaker can be heard.
type Audibility int

// Audibility levels.
const (
	Audible Audibility = iota
	BarelyAudible
)

// Anonymizer derives deterministic placeholder names for avatars. The salt
// rotates roughly daily so the mapping shuffles between sessions but stays
// stable within one.
type Anonymizer struct {
	salt int
}

// NewAnonymizer creates an anonymizer salted from the session launch time.
func NewAnonymizer(launch time.Time) *Anonymizer {
	return &Anonymizer{salt: int(launch.Unix() / 86400)}
}

// DummyName returns the placeholder phrase for an avatar name. The same
// name always maps to the same phrase within a session. Barely audible
// speakers get " afar" appended.
func (a *Anonymizer) DummyName(name string, audibility Audibility) string {
	if name == "" {
		return dummyNames[a.salt%len(dummyNames)]
	}
	h := int(name[0]) + int(name[len(name)-1]) + len(name) + a.salt
	out := dummyNames[h%len(dummyNames)]
	if audibility == BarelyAudible {
		out += " afar"
	}
	return out
}

// Name is a nearby avatar's legacy and display name pair.
type Name struct {
	Legacy  string
	Display string
}

// CensorMessage replaces every occurrence of each nearby avatar's legacy
// name and non-default display name with that avatar's dummy name.
func (a *Anonymizer) CensorMessage(msg string, nearby []Name) string {
	for _, n := range nearby {
		if n.Legacy != "" {
			msg = Replace(msg, n.Legacy, a.DummyName(n.Legacy, Audible), false)
		}
		if n.Display != "" && n.Display != n.Legacy {
			msg = Replace(msg, n.Display, a.DummyName(n.Legacy, Audible), false)
		}
	}
	return msg
}

// Replace substitutes every occurrence of search in s with repl. "%20" in
// the search string unescapes to a space first. Matching is
// case-insensitive unless caseSensitive is set. A search string that is
// empty or whitespace leaves s untouched.
func Replace(s, search, repl string, caseSensitive bool) string {
	search = strings.ReplaceAll(search, "%20", " ")
	if strings.TrimSpace(search) == "" {
		return s
	}
	if caseSensitive {
		return strings.ReplaceAll(s, search, repl)
	}

	lowerS := strings.ToLower(s)
	lowerSearch := strings.ToLower(search)
	var b strings.Builder
	i := 0
	for {
		j := strings.Index(lowerS[i:], lowerSearch)
		if j < 0 {
			break
		}
		j += i
		b.WriteString(s[i:j])
		b.WriteString(repl)
		i = j + len(search)
	}
	b.WriteString(s[i:])
	return b.String()
}
