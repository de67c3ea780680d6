package entity

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Blocklist holds the identifiers that are suppressed during a focus session.
type Blocklist struct {
	Apps     []string `json:"packages"` // Application identifiers, matched exactly.
	Sites    []string `json:"websites"` // Domain-like strings, matched loosely.
	Keywords []string `json:"keywords"` // Free text searched for in on-screen content.
}

// Whitelist holds the identifiers that are never suppressed. It has no keyword dimension.
type Whitelist struct {
	Apps  []string `json:"packages"`
	Sites []string `json:"websites"`
}

// NormalizeList lowercases and trims every entry, drops empty entries and removes
// case-insensitive duplicates while keeping first-occurrence order.
// The result is never nil.
func NormalizeList(values []string) []string {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(values))
	out := make([]string, 0, len(values))

	for _, raw := range values {
		v := strings.ToLower(strings.TrimSpace(raw))
		if v == "" || seen.Contains(v) {
			continue
		}
		seen.Add(v)
		out = append(out, v)
	}

	return out
}

// ContainsFold reports whether value is a member of list, ignoring case.
func ContainsFold(list []string, value string) bool {
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, v := range list {
		if strings.ToLower(v) == needle {
			return true
		}
	}

	return false
}

// Normalized returns a copy of the blocklist with every set normalized.
func (b Blocklist) Normalized() Blocklist {
	return Blocklist{
		Apps:     NormalizeList(b.Apps),
		Sites:    NormalizeList(b.Sites),
		Keywords: NormalizeList(b.Keywords),
	}
}

// Normalized returns a copy of the whitelist with every set normalized and
// selfIdentifier guaranteed to be present in Apps.
func (w Whitelist) Normalized(selfIdentifier string) Whitelist {
	apps := NormalizeList(w.Apps)
	if self := strings.ToLower(strings.TrimSpace(selfIdentifier)); self != "" && !ContainsFold(apps, self) {
		apps = append(apps, self)
	}

	return Whitelist{
		Apps:  apps,
		Sites: NormalizeList(w.Sites),
	}
}

// BlocklistPatch carries optional replacements for each blocklist set.
// A nil field leaves the corresponding set untouched.
type BlocklistPatch struct {
	Apps     []string
	Sites    []string
	Keywords []string
}

// WhitelistPatch carries optional replacements for each whitelist set.
type WhitelistPatch struct {
	Apps  []string
	Sites []string
}

// Apply replaces every provided set wholesale.
func (p BlocklistPatch) Apply(b Blocklist) Blocklist {
	if p.Apps != nil {
		b.Apps = p.Apps
	}
	if p.Sites != nil {
		b.Sites = p.Sites
	}
	if p.Keywords != nil {
		b.Keywords = p.Keywords
	}

	return b.Normalized()
}

// Apply replaces every provided set wholesale and re-inserts selfIdentifier.
func (p WhitelistPatch) Apply(w Whitelist, selfIdentifier string) Whitelist {
	if p.Apps != nil {
		w.Apps = p.Apps
	}
	if p.Sites != nil {
		w.Sites = p.Sites
	}

	return w.Normalized(selfIdentifier)
}
