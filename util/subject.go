package util

import "strings"

// SubjectMatches reports whether subj is covered by pattern. Patterns use
// NATS wildcards: * stands for one token, > for one or more trailing tokens.
func SubjectMatches(pattern, subj string) bool {
	for {
		pt, pRest, pMore := strings.Cut(pattern, ".")
		if pt == ">" {
			return subj != ""
		}
		st, sRest, sMore := strings.Cut(subj, ".")
		if st == "" || (pt != "*" && pt != st) {
			return false
		}
		if !pMore || !sMore {
			return pMore == sMore
		}
		pattern, subj = pRest, sRest
	}
}

// SubjectToken returns the i-th dot separated token of subj, or "" when subj
// is shorter.
func SubjectToken(subj string, i int) string {
	for ; i > 0; i-- {
		var ok bool
		if _, subj, ok = strings.Cut(subj, "."); !ok {
			return ""
		}
	}
	tok, _, _ := strings.Cut(subj, ".")
	return tok
}
