package pairing

import (
	"testing"
	"time"

	"photoport/internal/classify"
	"photoport/internal/issue"
)

func newTestDetector() *Detector {
	return NewDetector(Options{
		LiveVideoExtensions: []string{".mov", "mp4"},
		MaxMotionDuration:   10 * time.Second,
		ProximityTolerance:  3 * time.Second,
	})
}

func TestDetectNamePairs(t *testing.T) {
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		candidates []Candidate
		wantPairs  []Pair
		wantTop    []int
		wantOrphan int
	}{
		{
			name: "vendor motion extension",
			candidates: []Candidate{
				{Name: "IMG_0001.JPG", Kind: classify.KindImage},
				{Name: "IMG_0001.MP", Kind: classify.KindMotion},
			},
			wantPairs: []Pair{{Still: 0, Motion: 1, Signal: SignalName}},
			wantTop:   []int{0},
		},
		{
			name: "full name motion suffix",
			candidates: []Candidate{
				{Name: "PXL_1.jpg", Kind: classify.KindImage},
				{Name: "PXL_1.jpg.mp", Kind: classify.KindMotion},
			},
			wantPairs: []Pair{{Still: 0, Motion: 1, Signal: SignalName}},
			wantTop:   []int{0},
		},
		{
			name: "short live video",
			candidates: []Candidate{
				{Name: "IMG_0002.HEIC", Kind: classify.KindImage},
				{Name: "IMG_0002.MOV", Kind: classify.KindVideo, Duration: 3 * time.Second},
			},
			wantPairs: []Pair{{Still: 0, Motion: 1, Signal: SignalName}},
			wantTop:   []int{0},
		},
		{
			name: "long video stays standalone",
			candidates: []Candidate{
				{Name: "IMG_0003.HEIC", Kind: classify.KindImage},
				{Name: "IMG_0003.MOV", Kind: classify.KindVideo, Duration: time.Minute},
			},
			wantTop: []int{0, 1},
		},
		{
			name: "non live video extension ignored",
			candidates: []Candidate{
				{Name: "IMG_0004.JPG", Kind: classify.KindImage},
				{Name: "IMG_0004.AVI", Kind: classify.KindVideo},
			},
			wantTop: []int{0, 1},
		},
		{
			name: "motion claimed once",
			candidates: []Candidate{
				{Name: "IMG_5.jpg", Kind: classify.KindImage},
				{Name: "IMG_5.heic", Kind: classify.KindImage},
				{Name: "IMG_5.mp", Kind: classify.KindMotion},
			},
			wantPairs: []Pair{{Still: 0, Motion: 2, Signal: SignalName}},
			wantTop:   []int{0, 1},
		},
		{
			name: "proximity pairs closest still",
			candidates: []Candidate{
				{Name: "a.jpg", Kind: classify.KindImage, Taken: base},
				{Name: "b.jpg", Kind: classify.KindImage, Taken: base.Add(2 * time.Second)},
				{Name: "c.mp", Kind: classify.KindMotion, Taken: base.Add(1500 * time.Millisecond)},
			},
			wantPairs: []Pair{{Still: 1, Motion: 2, Signal: SignalProximity}},
			wantTop:   []int{0, 1},
		},
		{
			name: "proximity tie goes to earlier still",
			candidates: []Candidate{
				{Name: "a.jpg", Kind: classify.KindImage, Taken: base},
				{Name: "b.jpg", Kind: classify.KindImage, Taken: base.Add(2 * time.Second)},
				{Name: "c.mp", Kind: classify.KindMotion, Taken: base.Add(time.Second)},
			},
			wantPairs: []Pair{{Still: 0, Motion: 2, Signal: SignalProximity}},
			wantTop:   []int{0, 1},
		},
		{
			name: "orphan motion outside tolerance",
			candidates: []Candidate{
				{Name: "a.jpg", Kind: classify.KindImage, Taken: base},
				{Name: "c.mp", Kind: classify.KindMotion, Taken: base.Add(time.Minute)},
			},
			wantTop:    []int{0, 1},
			wantOrphan: 1,
		},
	}

	d := newTestDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.candidates)
			if !got.Conserved(len(tt.candidates)) {
				t.Fatalf("conservation violated: %+v", got)
			}
			if len(got.Pairs) != len(tt.wantPairs) {
				t.Fatalf("pairs = %+v, want %+v", got.Pairs, tt.wantPairs)
			}
			for i := range tt.wantPairs {
				if got.Pairs[i] != tt.wantPairs[i] {
					t.Fatalf("pair %d = %+v, want %+v", i, got.Pairs[i], tt.wantPairs[i])
				}
			}
			if len(got.TopLevel) != len(tt.wantTop) {
				t.Fatalf("top level = %v, want %v", got.TopLevel, tt.wantTop)
			}
			for i := range tt.wantTop {
				if got.TopLevel[i] != tt.wantTop[i] {
					t.Fatalf("top level = %v, want %v", got.TopLevel, tt.wantTop)
				}
			}
			if len(got.Orphans) != tt.wantOrphan || len(got.Issues) != tt.wantOrphan {
				t.Fatalf("orphans = %v issues = %+v", got.Orphans, got.Issues)
			}
			for _, is := range got.Issues {
				if is.Category != issue.Pairing {
					t.Fatalf("unexpected issue category %s", is.Category)
				}
			}
		})
	}
}

func TestDetectMotionNeverInTopLevelWhenPaired(t *testing.T) {
	candidates := []Candidate{
		{Name: "x.jpg", Kind: classify.KindImage},
		{Name: "x.mp", Kind: classify.KindMotion},
		{Name: "y.jpg", Kind: classify.KindImage},
		{Name: "y.mov", Kind: classify.KindVideo},
		{Name: "z.mp", Kind: classify.KindMotion},
	}
	got := newTestDetector().Detect(candidates)
	absorbed := map[int]bool{}
	for _, p := range got.Pairs {
		if absorbed[p.Motion] {
			t.Fatalf("motion %d paired twice", p.Motion)
		}
		absorbed[p.Motion] = true
	}
	for _, idx := range got.TopLevel {
		if absorbed[idx] {
			t.Fatalf("absorbed motion %d in top level", idx)
		}
	}
	if !got.Conserved(len(candidates)) || len(got.Pairs) != 2 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDetectProximityDisabled(t *testing.T) {
	base := time.Now()
	d := NewDetector(Options{})
	got := d.Detect([]Candidate{
		{Name: "a.jpg", Kind: classify.KindImage, Taken: base},
		{Name: "b.mp", Kind: classify.KindMotion, Taken: base},
	})
	if len(got.Pairs) != 0 || len(got.Orphans) != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
}
