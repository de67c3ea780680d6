package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "trims and lowercases", input: []string{"  Facebook.COM "}, want: []string{"facebook.com"}},
		{name: "drops blanks", input: []string{"", "   ", "a"}, want: []string{"a"}},
		{name: "dedupes keeping first occurrence", input: []string{"B", "a", "b", "A"}, want: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeList(tt.input))
		})
	}
}

func TestWhitelistNormalized_AlwaysContainsSelf(t *testing.T) {
	w := Whitelist{Apps: []string{"com.android.settings"}}.Normalized("Com.FocusApp.Blocker")
	assert.Equal(t, []string{"com.android.settings", "com.focusapp.blocker"}, w.Apps)
	assert.Equal(t, []string{}, w.Sites)

	w = Whitelist{Apps: []string{"COM.FOCUSAPP.BLOCKER"}}.Normalized("com.focusapp.blocker")
	assert.Equal(t, []string{"com.focusapp.blocker"}, w.Apps, "self is not duplicated")
}

func TestPatchApply(t *testing.T) {
	base := Blocklist{Apps: []string{"com.a"}, Sites: []string{"a.com"}, Keywords: []string{"x"}}

	got := BlocklistPatch{Sites: []string{"B.com"}, Keywords: []string{}}.Apply(base)
	assert.Equal(t, []string{"com.a"}, got.Apps)
	assert.Equal(t, []string{"b.com"}, got.Sites)
	assert.Empty(t, got.Keywords)

	white := WhitelistPatch{Apps: []string{}}.Apply(Whitelist{Apps: []string{"com.b"}, Sites: []string{"docs.com"}}, "self")
	assert.Equal(t, []string{"self"}, white.Apps)
	assert.Equal(t, []string{"docs.com"}, white.Sites)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold([]string{"com.a"}, " COM.A "))
	assert.False(t, ContainsFold([]string{"com.a"}, "com.b"))
	assert.False(t, ContainsFold(nil, "com.a"))
}
