// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package restriction

import (
	"strings"
)

// DefaultStatusSeparator joins rules in a status reply unless the query
// names another separator after a ";".
const DefaultStatusSeparator = "/"

// Status renders the entries matching a status query. The query is
// "filter[;separator]": every rule containing the filter is listed, each
// prefixed with the separator. An empty query lists everything.
func Status(entries []Entry, query string) string {
	filter := strings.ToLower(query)
	sep := DefaultStatusSeparator
	if idx := strings.Index(filter, ";"); idx >= 0 {
		if s := filter[idx+1:]; s != "" {
			sep = s
		}
		filter = filter[:idx]
	}

	var b strings.Builder
	for _, e := range entries {
		rule := e.Rule()
		if strings.Contains(rule, filter) {
			b.WriteString(sep)
			b.WriteString(rule)
		}
	}
	return b.String()
}
