package matcher

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"focusguard/config"
	"focusguard/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

const selfID = "com.focusapp.blocker"

func newTestEngine() *Engine {
	return New(config.MatcherConfig{SelfIdentifier: selfID}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func activeSnapshot(block entity.Blocklist, white entity.Whitelist) *Snapshot {
	return NewSnapshot(true, "s1", nil, block, white, time.Now())
}

func TestEngine_SelfExclusionAlwaysAllows(t *testing.T) {
	engine := newTestEngine()
	everything := entity.Blocklist{
		Apps:     []string{selfID},
		Sites:    []string{"focusapp"},
		Keywords: []string{"focus"},
	}

	snapshots := map[string]*Snapshot{
		"nil":       nil,
		"inactive":  Inactive(),
		"blocking":  activeSnapshot(everything, entity.Whitelist{}),
		"malformed": {Active: true},
	}

	for name, snap := range snapshots {
		t.Run(name, func(t *testing.T) {
			d := engine.Decide(Observation{
				Identifier: "COM.FocusApp.Blocker",
				Content:    &ContentNode{Text: "focus"},
			}, snap)
			assert.Equal(t, Decision{Verdict: Allow, Reason: ReasonSelf}, d)
		})
	}
}

func TestEngine_InactiveAllows(t *testing.T) {
	engine := newTestEngine()
	block := entity.Blocklist{Apps: []string{"com.a"}}

	assert.Equal(t, ReasonInactive, engine.Decide(Observation{Identifier: "com.a"}, nil).Reason)
	assert.Equal(t, ReasonInactive, engine.Decide(Observation{Identifier: "com.a"}, Inactive()).Reason)

	inactive := NewSnapshot(false, "s1", nil, block, entity.Whitelist{}, time.Now())
	assert.False(t, engine.Decide(Observation{Identifier: "com.a"}, inactive).Blocked())
}

func TestEngine_CachedEndTimeExpiresLocally(t *testing.T) {
	engine := newTestEngine()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	ends := now.Add(time.Minute)
	snap := NewSnapshot(true, "s1", &ends, entity.Blocklist{Apps: []string{"com.a"}}, entity.Whitelist{}, now)
	assert.True(t, engine.Decide(Observation{Identifier: "com.a"}, snap).Blocked())

	now = ends
	d := engine.Decide(Observation{Identifier: "com.a"}, snap)
	assert.Equal(t, Decision{Verdict: Allow, Reason: ReasonInactive}, d)
}

func TestEngine_AppMatching(t *testing.T) {
	engine := newTestEngine()
	snap := activeSnapshot(
		entity.Blocklist{Apps: []string{"com.a", "com.both"}},
		entity.Whitelist{Apps: []string{"com.both"}},
	)

	tests := []struct {
		name       string
		identifier string
		want       Decision
	}{
		{name: "blocked", identifier: "com.a", want: Decision{Verdict: Block, Reason: ReasonAppBlocked, Match: "com.a"}},
		{name: "case folded", identifier: " COM.A ", want: Decision{Verdict: Block, Reason: ReasonAppBlocked, Match: "com.a"}},
		{name: "whitelist wins", identifier: "com.both", want: Decision{Verdict: Allow, Reason: ReasonAppWhitelisted, Match: "com.both"}},
		{name: "prefix is not a match", identifier: "com.abc", want: Decision{Verdict: Allow, Reason: ReasonNoMatch}},
		{name: "empty identifier", identifier: "", want: Decision{Verdict: Allow, Reason: ReasonNoMatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Decide(Observation{Identifier: tt.identifier}, snap))
		})
	}
}

func TestEngine_SiteMatching(t *testing.T) {
	engine := newTestEngine()
	snap := activeSnapshot(
		entity.Blocklist{Sites: []string{"facebook.com", "reddit", "youtube.com"}},
		entity.Whitelist{Sites: []string{"docs.youtube.com"}},
	)

	tests := []struct {
		name string
		obs  Observation
		want Verdict
		why  string
	}{
		{
			name: "android url bar",
			obs:  Observation{Identifier: "com.android.chrome", URL: "https://www.facebook.com/feed"},
			want: Block, why: ReasonSiteBlocked,
		},
		{
			name: "title site name matches domain entry",
			obs:  Observation{Identifier: "Google Chrome", Title: "Facebook - Google Chrome"},
			want: Block, why: ReasonSiteBlocked,
		},
		{
			name: "domain token matches bare entry",
			obs:  Observation{Identifier: "firefox", Title: "reddit.com: the front page - Mozilla Firefox"},
			want: Block, why: ReasonSiteBlocked,
		},
		{
			name: "same registrable name on another tld",
			obs:  Observation{Identifier: "com.android.chrome", SiteToken: "facebook.de"},
			want: Block, why: ReasonSiteBlocked,
		},
		{
			name: "registrable name contained in entry name",
			obs:  Observation{Identifier: "com.android.chrome", SiteToken: "face.org"},
			want: Block, why: ReasonSiteBlocked,
		},
		{
			name: "whitelist short-circuits",
			obs:  Observation{Identifier: "com.android.chrome", URL: "docs.youtube.com/watch"},
			want: Allow, why: ReasonSiteWhitelisted,
		},
		{
			name: "unrelated site",
			obs:  Observation{Identifier: "com.android.chrome", URL: "https://golang.org"},
			want: Allow, why: ReasonNoMatch,
		},
		{
			name: "not a browser",
			obs:  Observation{Identifier: "com.notes", Title: "facebook.com"},
			want: Allow, why: ReasonNoMatch,
		},
		{
			name: "browser recognized by window owner",
			obs:  Observation{Identifier: "app-1234", AppName: "Brave Browser", Title: "facebook.com"},
			want: Block, why: ReasonSiteBlocked,
		},
		{
			name: "empty token skips the site step",
			obs:  Observation{Identifier: "com.android.chrome", Title: "Chrome"},
			want: Allow, why: ReasonNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(tt.obs, snap)
			assert.Equal(t, tt.want, d.Verdict)
			assert.Equal(t, tt.why, d.Reason)
		})
	}
}

func TestEngine_SiteWhitelistStopsKeywordScan(t *testing.T) {
	engine := newTestEngine()
	snap := activeSnapshot(
		entity.Blocklist{Keywords: []string{"casino"}},
		entity.Whitelist{Sites: []string{"wikipedia.org"}},
	)

	d := engine.Decide(Observation{
		Identifier: "com.android.chrome",
		URL:        "en.wikipedia.org/wiki/Casino",
		Content:    &ContentNode{Text: "Casino"},
	}, snap)
	assert.Equal(t, ReasonSiteWhitelisted, d.Reason)
}

func TestEngine_KeywordScan(t *testing.T) {
	engine := newTestEngine()
	snap := activeSnapshot(entity.Blocklist{Keywords: []string{"Casino", "poker"}}, entity.Whitelist{})

	tree := &ContentNode{
		Text: "Home",
		Children: []*ContentNode{
			{Text: "News", Children: []*ContentNode{nil, {Description: "Play POKER now"}}},
			{Text: "Online casino"},
		},
	}

	d := engine.Decide(Observation{Identifier: "com.reader", Content: tree}, snap)
	assert.Equal(t, Decision{Verdict: Block, Reason: ReasonContentBlocked, Match: "poker"}, d, "the first match in depth-first order wins")

	d = engine.Decide(Observation{Identifier: "com.reader", Content: &ContentNode{Text: "weather"}}, snap)
	assert.Equal(t, ReasonNoMatch, d.Reason)

	d = engine.Decide(Observation{Identifier: "com.reader"}, snap)
	assert.Equal(t, ReasonNoMatch, d.Reason, "no content tree means no scan")
}

func TestEngine_KeywordScanIsBounded(t *testing.T) {
	engine := New(config.MatcherConfig{SelfIdentifier: selfID, MaxScanNodes: 3}, nil)
	snap := activeSnapshot(entity.Blocklist{Keywords: []string{"casino"}}, entity.Whitelist{})

	tree := &ContentNode{Children: []*ContentNode{{}, {}, {}, {Text: "casino"}}}
	assert.False(t, engine.Decide(Observation{Identifier: "com.reader", Content: tree}, snap).Blocked())

	engine = New(config.MatcherConfig{SelfIdentifier: selfID, MaxScanNodes: 5}, nil)
	assert.True(t, engine.Decide(Observation{Identifier: "com.reader", Content: tree}, snap).Blocked())
}

func TestEngine_MalformedSnapshotAllows(t *testing.T) {
	engine := newTestEngine()

	d := engine.Decide(Observation{Identifier: "com.a"}, &Snapshot{Active: true})
	assert.Equal(t, Decision{Verdict: Allow, Reason: ReasonInternalError}, d)
}

func TestEngine_UpdatedSnapshotReleasesApp(t *testing.T) {
	engine := newTestEngine()

	before := activeSnapshot(entity.Blocklist{Apps: []string{"com.a"}}, entity.Whitelist{})
	assert.True(t, engine.Decide(Observation{Identifier: "com.a"}, before).Blocked())

	after := activeSnapshot(entity.Blocklist{}, entity.Whitelist{})
	assert.False(t, engine.Decide(Observation{Identifier: "com.a"}, after).Blocked())
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "block", Block.String())

	text, err := Block.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "block", string(text))
}

func TestEngine_WhitelistingBlockedSiteReleasesToken(t *testing.T) {
	engine := newTestEngine()
	obs := Observation{Identifier: "com.android.chrome", SiteToken: "facebook"}
	block := entity.Blocklist{Sites: []string{"facebook.com"}}

	before := engine.Decide(obs, activeSnapshot(block, entity.Whitelist{}))
	assert.Equal(t, Block, before.Verdict)
	assert.Equal(t, ReasonSiteBlocked, before.Reason)

	after := engine.Decide(obs, activeSnapshot(block, entity.Whitelist{Sites: []string{"facebook.com"}}))
	assert.Equal(t, Allow, after.Verdict)
	assert.Equal(t, ReasonSiteWhitelisted, after.Reason)
}
