package sidecar

import "testing"

func TestMatchDirectoryRules(t *testing.T) {
	m := NewMatcher(Options{EditedSuffixes: []string{"-edited", "-bearbeitet"}, TruncatedNameLength: 10})

	tests := []struct {
		name     string
		media    []string
		sidecars []string
		want     map[string]Match
	}{
		{
			name:     "exact",
			media:    []string{"IMG_0001.JPG"},
			sidecars: []string{"IMG_0001.JPG.json"},
			want:     map[string]Match{"IMG_0001.JPG": {Sidecar: "IMG_0001.JPG.json", Rule: RuleExact}},
		},
		{
			name:     "case and variant suffix",
			media:    []string{"img_0001.jpg"},
			sidecars: []string{"IMG_0001.JPG.supplemental-metadata.json"},
			want:     map[string]Match{"img_0001.jpg": {Sidecar: "IMG_0001.JPG.supplemental-metadata.json", Rule: RuleVariant}},
		},
		{
			name:     "duplicate counter moved behind extension",
			media:    []string{"IMG_0004.jpg", "IMG_0004(1).jpg"},
			sidecars: []string{"IMG_0004.jpg.json", "IMG_0004.jpg(1).json"},
			want: map[string]Match{
				"IMG_0004.jpg":    {Sidecar: "IMG_0004.jpg.json", Rule: RuleExact},
				"IMG_0004(1).jpg": {Sidecar: "IMG_0004.jpg(1).json", Rule: RuleVariant},
			},
		},
		{
			name:     "edited copy shares original sidecar",
			media:    []string{"IMG_0003.jpg", "IMG_0003-edited.jpg"},
			sidecars: []string{"IMG_0003.jpg.json"},
			want: map[string]Match{
				"IMG_0003.jpg":        {Sidecar: "IMG_0003.jpg.json", Rule: RuleExact},
				"IMG_0003-edited.jpg": {Sidecar: "IMG_0003.jpg.json", Rule: RuleVariant},
			},
		},
		{
			name:     "prefix without extension",
			media:    []string{"IMG_0002.jpg"},
			sidecars: []string{"IMG_0002.json"},
			want:     map[string]Match{"IMG_0002.jpg": {Sidecar: "IMG_0002.json", Rule: RulePrefix}},
		},
		{
			name:     "prefix respects name boundary",
			media:    []string{"IMG_1.jpg"},
			sidecars: []string{"IMG_12.json"},
			want:     map[string]Match{},
		},
		{
			name:     "truncated sidecar name",
			media:    []string{"holiday_in_the_mountains.jpg"},
			sidecars: []string{"holiday_in_th.json"},
			want:     map[string]Match{"holiday_in_the_mountains.jpg": {Sidecar: "holiday_in_th.json", Rule: RuleTruncated}},
		},
		{
			name:     "truncated below threshold ignored",
			media:    []string{"holiday_in_the_mountains.jpg"},
			sidecars: []string{"holiday.json"},
			want:     map[string]Match{},
		},
		{
			name:     "no sidecars",
			media:    []string{"a.jpg"},
			sidecars: nil,
			want:     map[string]Match{},
		},
		{
			name:     "path separators ignored",
			media:    []string{"sub/a.jpg"},
			sidecars: []string{"sub/a.jpg.json"},
			want:     map[string]Match{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.MatchDirectory(tt.media, tt.sidecars)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d matches, want %d: %#v", len(got), len(tt.want), got)
			}
			for media, want := range tt.want {
				if got[media] != want {
					t.Errorf("%s: got %+v, want %+v", media, got[media], want)
				}
			}
		})
	}
}

func TestPrefixClaimIsExclusive(t *testing.T) {
	m := NewMatcher(Options{})
	got := m.MatchDirectory(
		[]string{"IMG_0005.jpg", "IMG_0005.heic"},
		[]string{"IMG_0005.json"},
	)
	if len(got) != 1 {
		t.Fatalf("expected one media to claim the prefix sidecar, got %#v", got)
	}
	if got["IMG_0005.heic"].Sidecar != "IMG_0005.json" {
		t.Fatalf("expected lexicographically first media to win, got %#v", got)
	}
}

func TestPrefixSkipsExactClaims(t *testing.T) {
	m := NewMatcher(Options{})
	got := m.MatchDirectory(
		[]string{"IMG_0006.jpg", "IMG_0006.png"},
		[]string{"IMG_0006.jpg.json", "IMG_0006.json"},
	)
	if got["IMG_0006.jpg"].Rule != RuleExact {
		t.Fatalf("jpg: got %+v", got["IMG_0006.jpg"])
	}
	if got["IMG_0006.png"] != (Match{Sidecar: "IMG_0006.json", Rule: RulePrefix}) {
		t.Fatalf("png: got %+v", got["IMG_0006.png"])
	}
}

func TestPrefixPrefersStillOverMotion(t *testing.T) {
	m := NewMatcher(Options{})
	tests := []struct {
		name  string
		media []string
		still string
	}{
		{name: "motion component", media: []string{"IMG_0001.jpg", "IMG_0001.MP"}, still: "IMG_0001.jpg"},
		{name: "live video", media: []string{"IMG_0002.MOV", "IMG_0002.heic"}, still: "IMG_0002.heic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sidecar := tt.still[:8] + ".json"
			got := m.MatchDirectory(tt.media, []string{sidecar})
			if len(got) != 1 || got[tt.still] != (Match{Sidecar: sidecar, Rule: RulePrefix}) {
				t.Fatalf("expected the still to take %s, got %#v", sidecar, got)
			}
		})
	}
}

func TestMatchDirectoryVideoExact(t *testing.T) {
	m := NewMatcher(Options{})
	got := m.MatchDirectory([]string{"clip.mp4", "none.mp4"}, []string{"clip.mp4.json", "other.json"})
	if got["clip.mp4"] != (Match{Sidecar: "clip.mp4.json", Rule: RuleExact}) {
		t.Fatalf("unexpected match %+v", got["clip.mp4"])
	}
	if _, ok := got["none.mp4"]; ok {
		t.Fatal("expected no match for none.mp4")
	}
}
