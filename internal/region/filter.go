package region

import "strings"

// Filter implements the --talp-region-select grammar:
// "[include|exclude]:name1,name2,...|all".
type Filter struct {
	inclusion bool
	all       bool
	names     map[string]bool
}

// ParseFilter compiles a region-select expression. An empty expression
// enables every region (the default).
func ParseFilter(expr string) Filter {
	if expr == "" {
		return Filter{inclusion: true, all: true}
	}

	inclusion := true
	switch {
	case strings.HasPrefix(expr, "exclude:"):
		inclusion = false
		expr = strings.TrimPrefix(expr, "exclude:")
	case strings.HasPrefix(expr, "include:"):
		expr = strings.TrimPrefix(expr, "include:")
	}

	if expr == allName {
		return Filter{inclusion: inclusion, all: true}
	}

	names := make(map[string]bool)
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			names[tok] = true
		}
	}
	return Filter{inclusion: inclusion, names: names}
}

// Allows reports whether a region with this name should be enabled. The
// global region name is matched case-insensitively against the list, the
// same as the original's special-cased strcasecmp for the global region.
func (f Filter) Allows(name string) bool {
	if f.all {
		return f.inclusion
	}

	found := f.names[name]
	if !found && isGlobalAlias(name) {
		for tok := range f.names {
			if isGlobalAlias(tok) {
				found = true
				break
			}
		}
	}

	if f.inclusion {
		return found
	}
	return !found
}
