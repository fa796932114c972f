package provider

import "strings"

// rateLimitMarkers are substrings CLI tools print when a quota or throttle
// refuses the request. Matching is case-insensitive.
var rateLimitMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate-limit",
	"quota",
	"usage limit",
	"plan limit",
	"count exceeded",
}

// IsRateLimited reports whether tool output indicates throttling. Such
// failures go straight to the next provider instead of being retried.
func IsRateLimited(output string) bool {
	lower := strings.ToLower(output)
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
