package domain

import "strings"

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify converts a plan name to a URL-safe slug: lowercase letters,
// digits and hyphens are kept, spaces become hyphens, everything else is
// dropped.
//
//	Slugify("Winter Harvest 2025") // "winter-harvest-2025"
//	Slugify("North/South block")   // "northsouth-block"
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}
