package models

// Product is a single tracked software product, parsed from one input line.
type Product struct {
	Name    string
	Version string // empty when tracking the latest release
}

// Pinned reports whether the product tracks a specific version.
func (p Product) Pinned() bool {
	return p.Version != ""
}

// BadgeCategory identifies one badge kind served by the badge service.
type BadgeCategory string

const (
	CategoryHealth    BadgeCategory = "health"
	CategoryEOL       BadgeCategory = "eol"
	CategoryFreshness BadgeCategory = "freshness"
	CategoryCVE       BadgeCategory = "cve"
	CategoryCloud     BadgeCategory = "cloud"
)

// Categories lists every known badge category.
var Categories = []BadgeCategory{
	CategoryHealth,
	CategoryEOL,
	CategoryFreshness,
	CategoryCVE,
	CategoryCloud,
}

// Label returns the human word used for the category in badge alt text.
func (c BadgeCategory) Label() string {
	switch c {
	case CategoryEOL:
		return "EOL"
	case CategoryCVE:
		return "CVEs"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the known categories.
func (c BadgeCategory) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// RenderStyle selects the badge image style passed to the badge service.
type RenderStyle string

const (
	StyleFlat        RenderStyle = "flat"
	StyleFlatSquare  RenderStyle = "flat-square"
	StylePlastic     RenderStyle = "plastic"
	StyleForTheBadge RenderStyle = "for-the-badge"
)

// Valid reports whether s is one of the known styles.
func (s RenderStyle) Valid() bool {
	switch s {
	case StyleFlat, StyleFlatSquare, StylePlastic, StyleForTheBadge:
		return true
	}
	return false
}

// LinkMode selects what URL a rendered badge image links to.
type LinkMode string

const (
	// LinkBadgePage links each badge to its product page on releaserun.dev.
	LinkBadgePage LinkMode = "badge-page"
	// LinkHome links every badge to the releaserun.dev home page.
	LinkHome LinkMode = "releaserun-home"
	// LinkImage links the badge to its own image URL.
	LinkImage LinkMode = "badge-image"
)

// Valid reports whether m is one of the known link modes.
func (m LinkMode) Valid() bool {
	switch m {
	case LinkBadgePage, LinkHome, LinkImage:
		return true
	}
	return false
}

// SpliceResult is the outcome of splicing badge markup into a document.
// MarkersFound and Changed are independent: markers may be present while the
// document already holds the current markup.
type SpliceResult struct {
	MarkersFound bool
	Changed      bool
	Content      string
}
