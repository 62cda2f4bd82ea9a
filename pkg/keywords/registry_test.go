package keywords

import (
	"strings"
	"testing"
)

func TestRegistrySingleton(t *testing.T) {
	r1 := Get()
	r2 := Get()
	if r1 != r2 {
		t.Error("Get() should return the same registry instance")
	}
}

func TestRegistryHasAllGroups(t *testing.T) {
	r := Get()

	if len(r.Groups()) != len(AllTactics) {
		t.Fatalf("registry has %d groups, want %d", len(r.Groups()), len(AllTactics))
	}
	for i, tactic := range AllTactics {
		g := r.Groups()[i]
		if g.Tactic != tactic {
			t.Errorf("group %d is %q, want %q (canonical order)", i, g.Tactic, tactic)
		}
		if len(g.Keywords) == 0 {
			t.Errorf("group %q has no keywords", tactic)
		}
		if r.Group(tactic) != g {
			t.Errorf("Group(%q) does not return the registered group", tactic)
		}
	}
}

func TestGroupMatchesWordBoundary(t *testing.T) {
	r := Get()
	g := r.Group(TacticUrgency)

	if !g.Matches("this is urgent, reply now") {
		t.Error("expected 'urgent' to match")
	}
	// Substring inside a longer word must not count.
	if g.Matches("the insurgents retreated") {
		t.Error("'urgent' inside 'insurgents' should not match")
	}
}

func TestCountMatchesCapped(t *testing.T) {
	r := Get()
	g := r.Group(TacticUrgency)

	text := strings.ToLower("urgent! act now, last chance, final notice, asap, immediately")
	if got := g.CountMatches(text, 3); got != 3 {
		t.Errorf("CountMatches = %d, want cap 3", got)
	}
	if got := g.CountMatches(text, 10); got <= 3 {
		t.Errorf("CountMatches with high cap = %d, want > 3", got)
	}
	if got := g.CountMatches("nothing here", 3); got != 0 {
		t.Errorf("CountMatches on clean text = %d, want 0", got)
	}
}

func TestContainsURL(t *testing.T) {
	r := Get()

	testCases := []struct {
		text string
		want bool
	}{
		{"visit http://bit.ly/x now", true},
		{"go to www.example.com today", true},
		{"see maybank2u.com.my/login", true},
		{"verify at <url>", true}, // normalized form counts too
		{"no links in this message", false},
		{"version 2.0 released", false},
	}

	for _, tc := range testCases {
		if got := r.ContainsURL(tc.text); got != tc.want {
			t.Errorf("ContainsURL(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestMalayKeywordsPresent(t *testing.T) {
	r := Get()

	malay := map[Tactic]string{
		TacticUrgency:       "sila balas segera",
		TacticAuthority:     "pihak polis akan hubungi anda",
		TacticMoneyPressure: "sila bayar yuran",
		TacticThreat:        "akaun anda disekat",
		TacticVerification:  "sahkan akaun anda",
		TacticGreed:         "tahniah anda menang",
	}

	for tactic, text := range malay {
		if !r.Group(tactic).Matches(text) {
			t.Errorf("group %q did not match Malay text %q", tactic, text)
		}
	}
}

func TestTotalKeywords(t *testing.T) {
	r := Get()
	if n := r.TotalKeywords(); n < 60 {
		t.Errorf("TotalKeywords = %d, suspiciously low", n)
	}
}
