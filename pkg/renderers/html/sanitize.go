package html

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	summaryPolicyOnce sync.Once
	summaryPolicy     *bluemonday.Policy
)

// sanitizeSummary keeps the inline markup a user may paste into a summary
// (emphasis, links, line breaks) and strips everything else.
func sanitizeSummary(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := strings.TrimSpace(summarySanitizer().Sanitize(trimmed))
	return strings.ReplaceAll(cleaned, "\n", "<br>")
}

func summarySanitizer() *bluemonday.Policy {
	summaryPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "u", "br", "code")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		summaryPolicy = policy
	})
	return summaryPolicy
}
