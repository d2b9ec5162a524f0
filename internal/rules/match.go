package rules

import (
	"regexp"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/depgraph"
)

// backRef matches $0..$9 in a to-side pattern.
var backRef = regexp.MustCompile(`\$([0-9])`)

const patternCacheSize = 1024

// captures holds the submatches of a from.path match. Groups that did not
// participate are not set.
type captures struct {
	groups []string
	set    []bool
}

func (c captures) get(n int) (string, bool) {
	if n >= len(c.groups) || !c.set[n] {
		return "", false
	}
	return c.groups[n], true
}

// list returns the set groups, empty strings for the rest.
func (c captures) list() []string {
	if len(c.groups) == 0 {
		return nil
	}
	out := make([]string, len(c.groups))
	copy(out, c.groups)
	return out
}

// template is a to-side pattern. Without back references it is compiled
// once; otherwise it is expanded per edge.
type template struct {
	source string
	static *regexp.Regexp
}

// expand substitutes captures into the template. It fails when a
// referenced capture was not produced.
func (t *template) expand(c captures) (string, bool) {
	ok := true
	out := backRef.ReplaceAllStringFunc(t.source, func(tok string) string {
		n, _ := strconv.Atoi(tok[1:])
		v, found := c.get(n)
		if !found {
			ok = false
			return ""
		}
		return regexp.QuoteMeta(v)
	})
	return out, ok
}

// patternCache compiles effective to-side patterns once per run.
type patternCache struct {
	c *lru.Cache[string, *regexp.Regexp]
}

func newPatternCache() *patternCache {
	c, _ := lru.New[string, *regexp.Regexp](patternCacheSize)
	return &patternCache{c: c}
}

func (p *patternCache) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := p.c.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	p.c.Add(pattern, re)
	return re, nil
}

// matchTemplate matches s against t after substituting c. ok is false
// when t references a capture that was not produced.
func (p *patternCache) matchTemplate(t *template, c captures, s string) (matched, ok bool) {
	if t.static != nil {
		return t.static.MatchString(s), true
	}
	pattern, ok := t.expand(c)
	if !ok {
		return false, false
	}
	re, err := p.compile(pattern)
	if err != nil {
		return false, false
	}
	return re.MatchString(s), true
}

type criteria struct {
	path     *regexp.Regexp // from side
	pathNot  *regexp.Regexp
	pathT    *template // to side
	pathNotT *template
	types    map[string]bool
	typesNot map[string]bool
	circular *bool
	dynamic  *bool
}

// matchEdgeFlags checks the constraints both endpoints share.
func (c *criteria) matchEdgeFlags(e depgraph.Edge) bool {
	if len(c.types) > 0 && !anyIn(e.DependencyTypes, c.types) {
		return false
	}
	if len(c.typesNot) > 0 && anyIn(e.DependencyTypes, c.typesNot) {
		return false
	}
	if c.circular != nil && *c.circular != e.Circular {
		return false
	}
	if c.dynamic != nil && *c.dynamic != e.Dynamic {
		return false
	}
	return true
}

// matchFrom tests the from criteria against e and returns the captures
// produced by from.path.
func (c *criteria) matchFrom(e depgraph.Edge) (captures, bool) {
	var caps captures
	if c.path != nil {
		idx := c.path.FindStringSubmatchIndex(e.From.Path)
		if idx == nil {
			return caps, false
		}
		n := len(idx) / 2
		caps.groups = make([]string, n)
		caps.set = make([]bool, n)
		for i := 0; i < n; i++ {
			if idx[2*i] >= 0 {
				caps.groups[i] = e.From.Path[idx[2*i]:idx[2*i+1]]
				caps.set[i] = true
			}
		}
	}
	if c.pathNot != nil && c.pathNot.MatchString(e.From.Path) {
		return caps, false
	}
	return caps, c.matchEdgeFlags(e)
}

// matchTo tests the to criteria against e using the from captures. A
// reference to a capture that was not produced fails the criteria.
func (c *criteria) matchTo(e depgraph.Edge, caps captures, cache *patternCache) bool {
	if c.pathT != nil {
		if m, ok := cache.matchTemplate(c.pathT, caps, e.To.Path); !ok || !m {
			return false
		}
	}
	if c.pathNotT != nil {
		if m, ok := cache.matchTemplate(c.pathNotT, caps, e.To.Path); !ok || m {
			return false
		}
	}
	return c.matchEdgeFlags(e)
}

func anyIn(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}

func hasBackRef(patterns []string) bool {
	for _, p := range patterns {
		if backRef.MatchString(p) {
			return true
		}
	}
	return false
}

// placeholder fills back references with a literal so a template can be
// syntax checked before any capture exists.
func placeholder(source string) string {
	return backRef.ReplaceAllLiteralString(source, "x")
}
