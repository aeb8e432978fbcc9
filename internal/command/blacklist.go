// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package command

import (
	"strings"
)

// Canonical reduces a wire command name to its blacklist-table key.
// Names containing an underscore are truncated just after the first one
// ("setdebug_renderresolutiondivisor" becomes "setdebug_") unless the
// underscore begins a "_sec" or "_except" suffix, which stays intact
// ("sendim_sec" is its own table entry, not "sendim_").
func Canonical(cmd string) string {
	i := strings.Index(cmd, "_")
	if i < 0 {
		return cmd
	}
	suffix := cmd[i:]
	if strings.HasPrefix(suffix, "_sec") || strings.HasPrefix(suffix, "_except") {
		return cmd
	}
	return cmd[:i+1]
}

// Blacklisted reports whether the command is administratively disabled by the
// user-configured blacklist. Info and miscellaneous commands can never be
// blacklisted. The user blacklist holds comma-delimited command names; a
// force variant is addressed by appending the force marker. Secure and
// exception suffixes collapse onto their base name, so blacklisting "sendim"
// also covers "sendim_sec".
func (t *Table) Blacklisted(userBlacklist []string, cmd string, force bool) bool {
	canon := Canonical(cmd)

	entry, ok := t.entries[canon]
	if !ok {
		return false
	}
	if entry.Category == CategoryInfo || entry.Category == CategoryMiscellaneous {
		return false
	}
	if force && !entry.HasForce {
		return false
	}

	key := canon
	key = strings.TrimSuffix(key, "_sec")
	key = strings.TrimSuffix(key, "_except")
	if force {
		key += ForceMarker
	}
	for _, item := range userBlacklist {
		if item == key {
			return true
		}
	}
	return false
}

// ParseBlacklist splits the persisted comma-joined blacklist string into its
// entries, dropping empties.
func ParseBlacklist(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
