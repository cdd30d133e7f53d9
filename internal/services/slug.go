package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// fallbackSlug is used when a name has no ASCII letters or digits at all.
const fallbackSlug = "org"

// Slugify turns an organization name into a URL slug: accents are folded,
// letters lowercased, runs of anything else collapsed to a single hyphen and
// leading/trailing hyphens trimmed. "Café Society!" becomes "cafe-society".
func Slugify(name string) string {
	// transform.Chain keeps state, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-"), "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// uniqueSuffix disambiguates a colliding slug with the base36 unix millis of now.
func uniqueSuffix(slug string, now time.Time) string {
	return slug + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}

// sectionTitles maps the section ids offered at project creation to the
// titles of the documents they create.
var sectionTitles = map[string]string{
	"about":          "About Us",
	"need":           "Statement of Need",
	"project":        "Project Description",
	"outcomes":       "Outcomes & Impact",
	"budget":         "Budget",
	"sustainability": "Sustainability",
}

// SectionTitle returns the document title for a section id. Unknown ids are
// used as the title unchanged.
func SectionTitle(id string) string {
	if title, ok := sectionTitles[id]; ok {
		return title
	}
	return id
}
