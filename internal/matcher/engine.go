// Package matcher decides whether an observed foreground app, site or screen content
// must be blocked under the current session snapshot.
package matcher

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"focusguard/config"

	mapset "github.com/deckarep/golang-set/v2"
)

// Verdict is the outcome of a decision.
type Verdict int

const (
	Allow Verdict = iota
	Block
)

func (v Verdict) String() string {
	if v == Block {
		return "block"
	}

	return "allow"
}

// MarshalText encodes the verdict as "allow" or "block".
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Decision reasons.
const (
	ReasonSelf            = "self"
	ReasonInactive        = "no active session"
	ReasonAppWhitelisted  = "app whitelisted"
	ReasonAppBlocked      = "app blocked"
	ReasonSiteWhitelisted = "site whitelisted"
	ReasonSiteBlocked     = "site blocked"
	ReasonContentBlocked  = "content blocked"
	ReasonNoMatch         = "no match"
	ReasonInternalError   = "internal error"
)

// DefaultBrowserPackages are the Android browsers whose address bar is inspected.
var DefaultBrowserPackages = []string{
	"com.android.chrome",
	"org.mozilla.firefox",
	"com.microsoft.emmx",
	"com.brave.browser",
	"com.opera.browser",
}

// DefaultBrowserNames are matched as substrings of desktop process names.
var DefaultBrowserNames = []string{"chrome", "firefox", "safari", "edge", "brave", "opera", "vivaldi"}

const defaultMaxNodes = 5000

// Decision is the engine's answer for one observation.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
	Match   string  `json:"match,omitempty"` // The list entry or keyword that decided, if any.
}

// Blocked reports whether the decision is Block.
func (d Decision) Blocked() bool {
	return d.Verdict == Block
}

// Observation is one UI event as reported by the platform hooks.
type Observation struct {
	Identifier string       `json:"identifier"`          // Package name on mobile, process or app name on desktop.
	AppName    string       `json:"appName,omitempty"`   // Optional human readable owner name of the window.
	URL        string       `json:"url,omitempty"`       // Address bar text, when the platform exposes it.
	Title      string       `json:"title,omitempty"`     // Window title.
	SiteToken  string       `json:"siteToken,omitempty"` // Domain token already extracted by the platform, if any.
	Content    *ContentNode `json:"content,omitempty"`   // On-screen content tree, if any.
}

// Engine evaluates observations. It holds no session state and is safe for concurrent use.
type Engine struct {
	selfID          string
	browserPackages mapset.Set[string]
	browserNames    []string
	sites           *siteExtractor
	maxNodes        int
	logger          *slog.Logger
	now             func() time.Time
}

// New creates an engine from the matcher configuration. Empty browser lists fall back to
// DefaultBrowserPackages and DefaultBrowserNames.
func New(cfg config.MatcherConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	selfID := strings.ToLower(strings.TrimSpace(cfg.SelfIdentifier))
	if selfID == "" {
		selfID = config.DefaultSelfIdentifier
	}

	packages := cfg.BrowserPackages
	if len(packages) == 0 {
		packages = DefaultBrowserPackages
	}
	names := cfg.BrowserNames
	if len(names) == 0 {
		names = DefaultBrowserNames
	}

	maxNodes := cfg.MaxScanNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	browserPackages := mapset.NewSet[string]()
	for _, pkg := range packages {
		if pkg = strings.ToLower(strings.TrimSpace(pkg)); pkg != "" {
			browserPackages.Add(pkg)
		}
	}
	browserNames := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			browserNames = append(browserNames, name)
		}
	}

	return &Engine{
		selfID:          selfID,
		browserPackages: browserPackages,
		browserNames:    browserNames,
		sites:           newSiteExtractor(browserNames),
		maxNodes:        maxNodes,
		logger:          logger,
		now:             time.Now,
	}
}

// Decide evaluates obs against snap in a fixed order: self-exclusion, session state,
// app lists, site lists, content keywords. The first two steps cannot fail; a failure in
// any later step yields Allow.
func (e *Engine) Decide(obs Observation, snap *Snapshot) Decision {
	identifier := strings.ToLower(strings.TrimSpace(obs.Identifier))

	if identifier != "" && identifier == e.selfID {
		return Decision{Verdict: Allow, Reason: ReasonSelf}
	}
	if !snap.ActiveAt(e.now()) {
		return Decision{Verdict: Allow, Reason: ReasonInactive}
	}

	return e.evaluate(identifier, obs, snap)
}

// IsBrowser reports whether the observed process is a recognized browser.
func (e *Engine) IsBrowser(identifier, appName string) bool {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if e.browserPackages.Contains(identifier) {
		return true
	}

	appName = strings.ToLower(appName)
	for _, name := range e.browserNames {
		if strings.Contains(identifier, name) || (appName != "" && strings.Contains(appName, name)) {
			return true
		}
	}

	return false
}

func (e *Engine) evaluate(identifier string, obs Observation, snap *Snapshot) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Matcher failed, allowing",
				slog.String("identifier", identifier),
				slog.String("panic", fmt.Sprint(r)),
			)
			decision = Decision{Verdict: Allow, Reason: ReasonInternalError}
		}
	}()

	if identifier != "" {
		if snap.whiteApps.Contains(identifier) {
			return Decision{Verdict: Allow, Reason: ReasonAppWhitelisted, Match: identifier}
		}
		if snap.blockApps.Contains(identifier) {
			return Decision{Verdict: Block, Reason: ReasonAppBlocked, Match: identifier}
		}
	}

	if e.IsBrowser(identifier, obs.AppName) {
		if d, decided := e.decideSite(obs, snap); decided {
			return d
		}
	}

	keywords := snap.blocklist.Keywords
	if len(keywords) > 0 && obs.Content != nil {
		if keyword, found := findKeyword(obs.Content, keywords, e.maxNodes); found {
			return Decision{Verdict: Block, Reason: ReasonContentBlocked, Match: keyword}
		}
	}

	return Decision{Verdict: Allow, Reason: ReasonNoMatch}
}

func (e *Engine) decideSite(obs Observation, snap *Snapshot) (Decision, bool) {
	token := strings.ToLower(strings.TrimSpace(obs.SiteToken))
	if token == "" {
		token = e.sites.extract(obs.URL, obs.Title)
	}
	if token == "" {
		return Decision{}, false
	}

	for _, site := range snap.whitelist.Sites {
		if mutualSubstring(token, site) {
			return Decision{Verdict: Allow, Reason: ReasonSiteWhitelisted, Match: site}, true
		}
	}
	for i, site := range snap.blocklist.Sites {
		if matchSite(token, site, snap.blockBases[i]) {
			return Decision{Verdict: Block, Reason: ReasonSiteBlocked, Match: site}, true
		}
	}

	return Decision{}, false
}
