package domain

import "regexp"

// Platform identifies the media source a URL belongs to.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	return string(p)
}

// Known reports whether p is a supported platform.
func (p Platform) Known() bool {
	for _, pp := range platformPatterns {
		if pp.platform == p {
			return true
		}
	}
	return false
}

type platformPattern struct {
	platform Platform
	re       *regexp.Regexp
}

// platformPatterns is the single source of truth for both Classify and
// ExtractRelevantURLs. First match wins.
var platformPatterns = []platformPattern{
	{PlatformTwitter, regexp.MustCompile(`(?i)https?://(twitter\.com|x\.com|t\.co)/\S+`)},
	{PlatformInstagram, regexp.MustCompile(`(?i)https?://(www\.)?instagram\.com/(p|reel|stories)/\S+`)},
}

// urlToken matches a generic whitespace-delimited URL token.
var urlToken = regexp.MustCompile(`https?://[^\s]+`)

// KnownPlatforms returns the supported platforms in match order.
func KnownPlatforms() []Platform {
	out := make([]Platform, 0, len(platformPatterns))
	for _, pp := range platformPatterns {
		out = append(out, pp.platform)
	}
	return out
}

// Classify maps a URL to its platform, or PlatformUnknown.
func Classify(url string) Platform {
	for _, pp := range platformPatterns {
		if pp.re.MatchString(url) {
			return pp.platform
		}
	}
	return PlatformUnknown
}

// ExtractRelevantURLs returns every URL token in text that belongs to a known
// platform, in order of appearance.
func ExtractRelevantURLs(text string) []string {
	tokens := urlToken.FindAllString(text, -1)
	if len(tokens) == 0 {
		return nil
	}

	var relevant []string
	for _, tok := range tokens {
		if Classify(tok).Known() {
			relevant = append(relevant, tok)
		}
	}
	return relevant
}
