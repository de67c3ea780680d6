package matcher

import (
	"net/url"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	fullDomainPattern = regexp.MustCompile(`(?i)([a-z0-9-]+\.[a-z]{2,}(?:\.[a-z]{2,})?)`)
	siteNamePattern   = regexp.MustCompile(`^([a-zA-Z0-9]+)\s*[-|]`)
	firstWordPattern  = regexp.MustCompile(`^([a-zA-Z0-9]+)`)
)

// minTitleWord is the shortest title word accepted as a site name.
const minTitleWord = 3

var defaultExtractor = newSiteExtractor(DefaultBrowserNames)

// ExtractSiteToken returns a best-effort domain token for a browser surface.
// The URL host wins when a URL is present. Otherwise the window title is searched for
// a full domain, then for a site name before " - " or " | ", then for its first word.
// Browser names and words shorter than three characters are ignored. The result is
// lowercase and may be empty.
func ExtractSiteToken(rawURL, title string) string {
	return defaultExtractor.extract(rawURL, title)
}

type siteExtractor struct {
	ignored mapset.Set[string]
}

func newSiteExtractor(browserNames []string) *siteExtractor {
	ignored := mapset.NewThreadUnsafeSet[string]()
	for _, name := range browserNames {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			ignored.Add(name)
		}
	}

	return &siteExtractor{ignored: ignored}
}

func (x *siteExtractor) extract(rawURL, title string) string {
	if rawURL = strings.TrimSpace(rawURL); rawURL != "" {
		return hostToken(rawURL)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	if m := fullDomainPattern.FindStringSubmatch(title); m != nil {
		return strings.TrimPrefix(strings.ToLower(m[1]), "www.")
	}
	if m := siteNamePattern.FindStringSubmatch(title); m != nil {
		if word := strings.ToLower(m[1]); x.acceptWord(word) {
			return word
		}
	}
	if m := firstWordPattern.FindStringSubmatch(title); m != nil {
		if word := strings.ToLower(m[1]); x.acceptWord(word) {
			return word
		}
	}

	return ""
}

func (x *siteExtractor) acceptWord(word string) bool {
	return len(word) >= minTitleWord && !x.ignored.Contains(word)
}

// hostToken returns the host of rawURL without "www.". Text that does not parse as a URL,
// such as a search query typed into the address bar, is returned lowercased as is.
func hostToken(rawURL string) string {
	lowered := strings.ToLower(rawURL)

	candidate := lowered
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Hostname() == "" {
		return lowered
	}

	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// mutualSubstring reports whether either string contains the other.
func mutualSubstring(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// registrableName returns the part of a domain before its first dot.
func registrableName(domain string) string {
	if i := strings.IndexByte(domain, '.'); i >= 0 {
		return domain[:i]
	}

	return domain
}

// matchSite applies the loose site rule: the token and entry contain one another, or the
// token and the entry's registrable name do, or the two registrable names do.
func matchSite(token, entry, entryBase string) bool {
	if mutualSubstring(token, entry) {
		return true
	}
	if entryBase == "" {
		return false
	}
	if mutualSubstring(token, entryBase) {
		return true
	}
	tokenBase := registrableName(token)

	return tokenBase != "" && mutualSubstring(tokenBase, entryBase)
}
