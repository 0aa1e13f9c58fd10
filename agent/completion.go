package agent

import (
	"regexp"
	"strings"
)

// Verdict is the builder's judgement of whether its task is finished.
type Verdict int

const (
	VerdictUnclear Verdict = iota
	VerdictDone
	VerdictNotDone
)

func (v Verdict) String() string {
	switch v {
	case VerdictDone:
		return "done"
	case VerdictNotDone:
		return "not_done"
	default:
		return "unclear"
	}
}

var (
	statusTagRe = regexp.MustCompile(`(?i)<status>\s*(done|continue)\s*</status>`)
	yesRe       = regexp.MustCompile(`\byes\b`)
	noRe        = regexp.MustCompile(`\bno\b`)
)

// ClassifyCompletion reads a follow-up reply from the builder.
//
// A <status>done</status> or <status>continue</status> tag decides on its
// own. Without one, the lowercased text is searched for the whole words
// "yes" and "no". "yes" anywhere means done, "no" without "yes" means not
// done, and neither is unclear.
func ClassifyCompletion(text string) Verdict {
	if m := statusTagRe.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], "done") {
			return VerdictDone
		}
		return VerdictNotDone
	}

	lower := strings.ToLower(text)
	switch {
	case yesRe.MatchString(lower):
		return VerdictDone
	case noRe.MatchString(lower):
		return VerdictNotDone
	default:
		return VerdictUnclear
	}
}
