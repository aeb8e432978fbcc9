// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package restriction implements the multi-map of active restrictions keyed
// by issuing in-world object. The store is deliberately dumb: side effects,
// cached-flag recomputation, and policy checks live in the engine, which is
// the only mutator. Entries are never deduplicated; several objects can
// impose the same restriction and lifting one does not lift the others.
package restriction

import (
	"strings"

	"github.com/google/uuid"
)

// Entry is one active restriction: the issuing object plus the behaviour and
// its optional option ("sendim" vs "sendim:uuid").
type Entry struct {
	Issuer    uuid.UUID
	Behaviour string
	Option    string
}

// Rule returns the composed restriction string, "behaviour" or
// "behaviour:option".
func (e Entry) Rule() string {
	if e.Option == "" {
		return e.Behaviour
	}
	return e.Behaviour + ":" + e.Option
}

// Store is an ordered multi-map of restrictions. It performs no
// synchronization: the engine serializes all access behind its own lock
// because partial flag updates would be security relevant.
type Store struct {
	entries []Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Add appends an entry. Insertion order is preserved so that batched
// commands land in left-to-right order.
func (s *Store) Add(e Entry) {
	e.Behaviour = strings.ToLower(e.Behaviour)
	e.Option = strings.ToLower(e.Option)
	s.entries = append(s.entries, e)
}

// Remove deletes the first entry matching issuer, behaviour, and option
// exactly. Returns false if no entry matched.
func (s *Store) Remove(issuer uuid.UUID, behaviour, option string) bool {
	behaviour = strings.ToLower(behaviour)
	option = strings.ToLower(option)
	for i, e := range s.entries {
		if e.Issuer == issuer && e.Behaviour == behaviour && e.Option == option {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveMatching deletes every entry of the issuer whose composed rule
// contains the filter substring (an empty filter matches everything) and
// returns the removed entries in store order.
func (s *Store) RemoveMatching(issuer uuid.UUID, filter string) []Entry {
	filter = strings.ToLower(filter)
	var removed []Entry
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Issuer == issuer && strings.Contains(e.Rule(), filter) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}

// Replace copies every entry of oldIssuer to newIssuer verbatim, then
// removes oldIssuer's entries. Used when an object is re-rezzed under a new
// UUID but its restrictions must persist. Returns the number of entries
// moved.
func (s *Store) Replace(oldIssuer, newIssuer uuid.UUID) int {
	n := 0
	for _, e := range s.entries {
		if e.Issuer == oldIssuer {
			s.entries = append(s.entries, Entry{Issuer: newIssuer, Behaviour: e.Behaviour, Option: e.Option})
			n++
		}
	}
	if n > 0 {
		s.RemoveMatching(oldIssuer, "")
	}
	return n
}

// ForIssuer returns a copy of the issuer's entries in store order.
func (s *Store) ForIssuer(issuer uuid.UUID) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Issuer == issuer {
			out = append(out, e)
		}
	}
	return out
}

// All returns a copy of every entry in store order.
func (s *Store) All() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Issuers returns the distinct issuer ids in order of first appearance.
func (s *Store) Issuers() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, e := range s.entries {
		if !seen[e.Issuer] {
			seen[e.Issuer] = true
			out = append(out, e.Issuer)
		}
	}
	return out
}

// Contains reports whether any issuer holds exactly this composed rule.
// Case-insensitive.
func (s *Store) Contains(rule string) bool {
	rule = strings.ToLower(rule)
	for _, e := range s.entries {
		if e.Rule() == rule {
			return true
		}
	}
	return false
}

// ContainsSubstr reports whether any stored rule contains the fragment.
func (s *Store) ContainsSubstr(fragment string) bool {
	fragment = strings.ToLower(fragment)
	for _, e := range s.entries {
		if strings.Contains(e.Rule(), fragment) {
			return true
		}
	}
	return false
}

// ContainsPair reports whether the exact (issuer, rule) pair is present.
func (s *Store) ContainsPair(issuer uuid.UUID, rule string) bool {
	rule = strings.ToLower(rule)
	for _, e := range s.entries {
		if e.Issuer == issuer && e.Rule() == rule {
			return true
		}
	}
	return false
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return len(s.entries)
}
