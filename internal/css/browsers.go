package css

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Browser identifies a browser family in a compatibility matrix.
type Browser string

const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Edge    Browser = "edge"
	IE      Browser = "ie"
	IOS     Browser = "ios"
	Safari  Browser = "safari"
	Android Browser = "android"
	Opera   Browser = "opera"
)

var browserAliases = map[string]Browser{
	"chrome":   Chrome,
	"firefox":  Firefox,
	"ff":       Firefox,
	"edge":     Edge,
	"explorer": IE,
	"ie":       IE,
	"ios":      IOS,
	"ios_saf":  IOS,
	"safari":   Safari,
	"android":  Android,
	"opera":    Opera,
}

// knownVersions lists the released versions a query can select.
var knownVersions = map[Browser][]string{
	Chrome:  majorRange(4, 130),
	Firefox: append([]string{"2", "3", "3.5", "3.6"}, majorRange(4, 131)...),
	Edge:    append(majorRange(12, 18), majorRange(79, 130)...),
	IE:      {"5.5", "6", "7", "8", "9", "10", "11"},
	IOS: {
		"3.2", "4.0", "4.2", "5.0", "5.1", "6.0", "6.1", "7.0", "7.1",
		"8.0", "8.1", "8.4", "9.0", "9.3", "10.0", "10.3", "11.0", "11.4",
		"12.0", "12.4", "13.0", "13.4", "14.0", "14.5", "15.0", "15.4",
		"16.0", "16.4", "17.0", "17.4", "18.0",
	},
	Safari: {
		"3.1", "3.2", "4", "5", "5.1", "6", "6.1", "7", "7.1", "8", "9",
		"9.1", "10", "10.1", "11", "11.1", "12", "12.1", "13", "13.1", "14",
		"14.1", "15", "15.4", "16", "16.4", "17", "17.4", "18",
	},
	Android: {"2.1", "2.2", "2.3", "3", "4", "4.1", "4.2", "4.3", "4.4", "4.4.3", "130"},
	Opera: append([]string{
		"9", "9.5", "10.0", "10.5", "10.6", "11", "11.1", "11.5", "11.6", "12", "12.1",
	}, majorRange(15, 114)...),
}

func majorRange(from, to int) []string {
	out := make([]string, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, strconv.Itoa(v))
	}
	return out
}

var queryPattern = regexp.MustCompile(`^\s*([A-Za-z_]+)\s*(>=|<=|>|<|=)?\s*([0-9]+(?:\.[0-9]+)*)\s*$`)

// Matrix is the set of browser versions a build must support.
type Matrix struct {
	queries  []string
	versions map[Browser][]*semver.Version
}

// ParseMatrix builds a matrix from queries such as "Chrome >= 35",
// "Explorer >= 10" or "Android 2.3".
func ParseMatrix(queries []string) (*Matrix, error) {
	m := &Matrix{versions: make(map[Browser][]*semver.Version)}
	for _, q := range queries {
		match := queryPattern.FindStringSubmatch(q)
		if match == nil {
			return nil, fmt.Errorf("invalid browser query %q", q)
		}
		b, ok := browserAliases[strings.ToLower(match[1])]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q in query %q", match[1], q)
		}
		op := match[2]
		if op == "" {
			op = "="
		}
		c, err := semver.NewConstraint(op + " " + match[3])
		if err != nil {
			return nil, fmt.Errorf("invalid browser query %q: %w", q, err)
		}
		selected := 0
		for _, raw := range knownVersions[b] {
			v := semver.MustParse(raw)
			if c.Check(v) && !m.has(b, v) {
				m.versions[b] = append(m.versions[b], v)
				selected++
			}
		}
		if selected == 0 && op == "=" {
			return nil, fmt.Errorf("browser query %q selects no known version", q)
		}
		m.queries = append(m.queries, strings.TrimSpace(q))
	}
	for b := range m.versions {
		sort.Sort(semver.Collection(m.versions[b]))
	}
	return m, nil
}

func (m *Matrix) has(b Browser, v *semver.Version) bool {
	for _, have := range m.versions[b] {
		if have.Equal(v) {
			return true
		}
	}
	return false
}

// Queries returns the queries the matrix was built from.
func (m *Matrix) Queries() []string {
	return append([]string(nil), m.queries...)
}

// Versions returns the selected versions of b in ascending order.
func (m *Matrix) Versions(b Browser) []string {
	out := make([]string, 0, len(m.versions[b]))
	for _, v := range m.versions[b] {
		out = append(out, v.Original())
	}
	return out
}

// Needs reports whether any selected version of b satisfies constraint.
func (m *Matrix) Needs(b Browser, constraint string) bool {
	if m == nil {
		return false
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	for _, v := range m.versions[b] {
		if c.Check(v) {
			return true
		}
	}
	return false
}

// support maps browsers to the version range that requires a prefix.
type support map[Browser]string

// needsAny reports whether any browser in s requires the feature.
func (m *Matrix) needsAny(s support) bool {
	for b, c := range s {
		if m.Needs(b, c) {
			return true
		}
	}
	return false
}
