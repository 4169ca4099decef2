package discovery

import (
	"path"
	"strings"
)

// IgnoreList holds Unix shell glob patterns matched against metric topic
// suffixes. A matching suffix is never announced.
//
// Patterns use fnmatch semantics: "*" matches any characters including "/",
// so "ac/l1/*" ignores the whole l1 subtree and "*temperature*" ignores
// every temperature metric regardless of nesting.
type IgnoreList []string

// Match reports whether the suffix matches any pattern in the list.
// Invalid patterns never match; they are rejected at config validation.
func (l IgnoreList) Match(suffix string) bool {
	for _, pattern := range l {
		ok, err := matchPattern(pattern, suffix)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePattern checks a glob pattern for syntax errors.
func ValidatePattern(pattern string) error {
	_, err := matchPattern(pattern, "")
	return err
}

// matchPattern matches with fnmatch semantics. path.Match stops "*" at "/",
// so both operands have "/" mapped to a placeholder byte first.
func matchPattern(pattern, name string) (bool, error) {
	const placeholder = "\x00"
	p := strings.ReplaceAll(pattern, "/", placeholder)
	n := strings.ReplaceAll(name, "/", placeholder)
	return path.Match(p, n)
}
