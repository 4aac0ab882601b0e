package alert

import "strings"

// SplitSchemeTarget splits a "scheme://target" alert URL on the first
// "://", matching spec §9's dynamic-URL-parsing rule. It is not
// net/url.Parse because the "target" half is sink-specific (for wecom, an
// opaque webhook URL) rather than a generic URL component set.
func SplitSchemeTarget(url string) (scheme, target string, ok bool) {
	i := strings.Index(url, "://")
	if i < 0 {
		return "", "", false
	}
	return url[:i], url[i+len("://"):], true
}
