package symbol

import "iter"

// Target is a single destination a symbol resolves to.
type Target struct {
	URL    string `json:"url"`
	Parent bool   `json:"parent,omitempty"` // open in the parent frame
	Scope  string `json:"scope"`
}

// Entry is one row of a search table.
type Entry struct {
	Key     string   `json:"key"`   // generated slug, unique per table
	Label   string   `json:"label"` // display name, possibly with a signature
	Targets []Target `json:"targets"`
}

func (e Entry) clone() Entry {
	e.Targets = append([]Target(nil), e.Targets...)
	return e
}

// Resolver answers symbol queries against a loaded table.
type Resolver interface {
	Search(prefix string) iter.Seq[Entry]
	Lookup(key string) (Entry, bool)
}

// ScopeGroup is a run of targets sharing one owning scope.
type ScopeGroup struct {
	Scope   string   `json:"scope"`
	Targets []Target `json:"targets"`
}

// GroupByScope groups targets by scope, keeping the order in which each
// scope first appears.
func GroupByScope(targets []Target) []ScopeGroup {
	var groups []ScopeGroup
	pos := make(map[string]int)
	for _, t := range targets {
		i, ok := pos[t.Scope]
		if !ok {
			i = len(groups)
			pos[t.Scope] = i
			groups = append(groups, ScopeGroup{Scope: t.Scope})
		}
		groups[i].Targets = append(groups[i].Targets, t)
	}
	return groups
}

// Take collects at most n entries from seq. n <= 0 means no limit.
func Take(seq iter.Seq[Entry], n int) []Entry {
	var out []Entry
	for e := range seq {
		out = append(out, e)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
