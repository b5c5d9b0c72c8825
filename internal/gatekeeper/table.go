package gatekeeper

import "strings"

// WildcardSuffix marks a protected entry that covers every sub-path, as in
// "/clientes/:path*".
const WildcardSuffix = "/:path*"

// PathClass is the gatekeeper's view of a request path.
type PathClass int

const (
	UnmatchedPath PathClass = iota
	PublicPath
	ProtectedPath
)

func (c PathClass) String() string {
	switch c {
	case PublicPath:
		return "public"
	case ProtectedPath:
		return "protected"
	default:
		return "unmatched"
	}
}

type entry struct {
	base     string
	wildcard bool
}

// Table classifies paths against the login path and the protected-path list.
type Table struct {
	loginPath string
	entries   []entry
}

func NewTable(loginPath string, protected []string) *Table {
	t := &Table{loginPath: normalize(loginPath)}
	for _, p := range protected {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		e := entry{base: p}
		if strings.HasSuffix(p, WildcardSuffix) {
			e.base = strings.TrimSuffix(p, WildcardSuffix)
			e.wildcard = true
		}
		e.base = normalize(e.base)
		t.entries = append(t.entries, e)
	}
	return t
}

// Classify returns PublicPath for the login path, ProtectedPath when path
// equals an entry or sits below it on a slash boundary, and UnmatchedPath
// otherwise.
func (t *Table) Classify(path string) PathClass {
	path = normalize(path)
	if path == t.loginPath {
		return PublicPath
	}
	for _, e := range t.entries {
		if e.matches(path) {
			return ProtectedPath
		}
	}
	return UnmatchedPath
}

// Entries returns the entries as configured.
func (t *Table) Entries() []string {
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.wildcard {
			out = append(out, strings.TrimSuffix(e.base, "/")+WildcardSuffix)
			continue
		}
		out = append(out, e.base)
	}
	return out
}

func (e entry) matches(path string) bool {
	if path == e.base {
		return true
	}
	if e.base == "/" {
		return e.wildcard
	}
	return strings.HasPrefix(path, e.base+"/")
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
