package cache

import "strings"

// EmptyRender is stored when the upstream confirmed there is nothing to show
// for a post. It is distinct from a missing entry, which means "not checked".
const EmptyRender = " "

// IsEmptyRender reports whether a cached value carries no displayable markup.
func IsEmptyRender(value string) bool {
	return strings.TrimSpace(value) == ""
}
