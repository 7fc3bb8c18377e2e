package sidecar

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"photoport/internal/classify"
)

// Rule names the heuristic that associated a sidecar with a media file.
type Rule string

const (
	RuleExact     Rule = "exact"
	RuleVariant   Rule = "suffix-variant"
	RulePrefix    Rule = "prefix"
	RuleTruncated Rule = "truncated"
)

// Match is the sidecar chosen for one media file.
type Match struct {
	Sidecar string
	Rule    Rule
}

// Options tunes the naming heuristics.
type Options struct {
	// EditedSuffixes mark derivative files (IMG-edited.jpg) that share the
	// original file's sidecar. Compared case-insensitively.
	EditedSuffixes []string
	// TruncatedNameLength is the sidecar base-name length at which the
	// exporter is assumed to have cut the name short. 0 disables the rule.
	TruncatedNameLength int
}

// Matcher associates media files with sidecars inside a single directory.
type Matcher struct {
	editedSuffixes []string
	truncatedLen   int
}

// NewMatcher constructs a matcher.
func NewMatcher(opts Options) *Matcher {
	suffixes := make([]string, 0, len(opts.EditedSuffixes))
	for _, s := range opts.EditedSuffixes {
		if s = strings.TrimSpace(s); s != "" {
			suffixes = append(suffixes, foldName(s))
		}
	}
	return &Matcher{editedSuffixes: suffixes, truncatedLen: opts.TruncatedNameLength}
}

var duplicateIndex = regexp.MustCompile(`^(.*)\((\d+)\)$`)

// variantSuffixes are inserted between the media file name and ".json".
var variantSuffixes = []string{".supplemental-metadata", ".sup-meta"}

// directory is the per-directory sidecar index.
type directory struct {
	byKey   map[string]string
	sorted  []string
	claimed map[string]struct{}
}

func newDirectory(sidecars []string) *directory {
	d := &directory{byKey: make(map[string]string, len(sidecars)), claimed: make(map[string]struct{})}
	names := append([]string(nil), sidecars...)
	sort.Strings(names)
	for _, name := range names {
		if !isBaseName(name) {
			continue
		}
		key := foldName(name)
		if _, dup := d.byKey[key]; dup {
			continue
		}
		d.byKey[key] = name
		d.sorted = append(d.sorted, key)
	}
	sort.Strings(d.sorted)
	return d
}

// MatchDirectory returns the best sidecar for each media file. Both slices
// hold base names of entries in the same directory; names carrying a path
// separator are ignored. Media without a match are absent from the result.
//
// Rules apply in priority order. Exact and variant matches are resolved for
// every media file first so that the prefix and truncated rules only consider
// sidecars no exact rule claimed. Media are visited stills first, then by
// folded name, so a motion component never takes the sidecar of the still it
// belongs to. Among several prefix candidates the lexicographically first
// wins, and a sidecar taken by a prefix or truncated match is not offered to
// another media file.
func (m *Matcher) MatchDirectory(media, sidecars []string) map[string]Match {
	dir := newDirectory(sidecars)
	result := make(map[string]Match, len(media))

	names := make([]string, 0, len(media))
	for _, name := range media {
		if isBaseName(name) {
			names = append(names, name)
		}
	}
	sortStillsFirst(names)

	for _, name := range names {
		if match, ok := m.matchNamed(dir, name); ok {
			result[name] = match
		}
	}
	for _, name := range names {
		if _, done := result[name]; done {
			continue
		}
		if match, ok := m.matchPrefix(dir, name); ok {
			result[name] = match
		}
	}
	for _, name := range names {
		if _, done := result[name]; done {
			continue
		}
		if match, ok := m.matchTruncated(dir, name); ok {
			result[name] = match
		}
	}
	return result
}

// sortStillsFirst orders still images ahead of videos and motion
// components, then by folded name with the raw name as tie-break.
func sortStillsFirst(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		si, sj := isStill(names[i]), isStill(names[j])
		if si != sj {
			return si
		}
		fi, fj := foldName(names[i]), foldName(names[j])
		if fi != fj {
			return fi < fj
		}
		return names[i] < names[j]
	})
}

func isStill(name string) bool {
	return classify.Classify(name).Kind == classify.KindImage
}

func (m *Matcher) matchNamed(dir *directory, name string) (Match, bool) {
	for i, candidate := range m.namedCandidates(name) {
		key := foldName(candidate)
		original, ok := dir.byKey[key]
		if !ok {
			continue
		}
		dir.claimed[key] = struct{}{}
		rule := RuleVariant
		if i == 0 {
			rule = RuleExact
		}
		return Match{Sidecar: original, Rule: rule}, true
	}
	return Match{}, false
}

// namedCandidates lists sidecar names derivable from name, exact first.
func (m *Matcher) namedCandidates(name string) []string {
	candidates := []string{name + ".json"}
	for _, suffix := range variantSuffixes {
		candidates = append(candidates, name+suffix+".json")
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	// IMG(1).jpg -> IMG.jpg(1).json, IMG.jpg.supplemental-metadata(1).json
	if groups := duplicateIndex.FindStringSubmatch(stem); groups != nil && groups[1] != "" {
		base := groups[1] + ext
		index := "(" + groups[2] + ")"
		candidates = append(candidates, base+index+".json")
		for _, suffix := range variantSuffixes {
			candidates = append(candidates, base+suffix+index+".json")
		}
	}

	// IMG-edited.jpg -> IMG.jpg.json
	folded := foldName(stem)
	for _, suffix := range m.editedSuffixes {
		if !strings.HasSuffix(folded, suffix) || len(folded) == len(suffix) {
			continue
		}
		original := trimFoldedSuffix(stem, suffix) + ext
		candidates = append(candidates, original+".json")
		for _, variant := range variantSuffixes {
			candidates = append(candidates, original+variant+".json")
		}
	}
	return candidates
}

func (m *Matcher) matchPrefix(dir *directory, name string) (Match, bool) {
	stem := foldName(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		return Match{}, false
	}
	start := sort.SearchStrings(dir.sorted, stem)
	for _, key := range dir.sorted[start:] {
		if !strings.HasPrefix(key, stem) {
			break
		}
		if _, taken := dir.claimed[key]; taken {
			continue
		}
		if !atBoundary(key, len(stem)) {
			continue
		}
		dir.claimed[key] = struct{}{}
		return Match{Sidecar: dir.byKey[key], Rule: RulePrefix}, true
	}
	return Match{}, false
}

func (m *Matcher) matchTruncated(dir *directory, name string) (Match, bool) {
	if m.truncatedLen <= 0 {
		return Match{}, false
	}
	folded := foldName(name)
	for _, key := range dir.sorted {
		if _, taken := dir.claimed[key]; taken {
			continue
		}
		base := strings.TrimSuffix(key, ".json")
		if utf8.RuneCountInString(base) < m.truncatedLen || len(base) >= len(folded) {
			continue
		}
		if strings.HasPrefix(folded, base) {
			dir.claimed[key] = struct{}{}
			return Match{Sidecar: dir.byKey[key], Rule: RuleTruncated}, true
		}
	}
	return Match{}, false
}

// atBoundary reports whether the prefix of length n ends on a name boundary,
// so IMG_1 does not claim IMG_12.jpg.json.
func atBoundary(key string, n int) bool {
	if n >= len(key) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(key[n:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func trimFoldedSuffix(stem, foldedSuffix string) string {
	runes := []rune(stem)
	cut := len(runes) - utf8.RuneCountInString(foldedSuffix)
	if cut < 0 {
		return stem
	}
	return string(runes[:cut])
}

func isBaseName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`)
}

// foldName produces the comparison key for a file name: NFC-normalized and
// lower-cased, so names from NFD filesystems and case-mangled exports match.
func foldName(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}
