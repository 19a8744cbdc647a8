// Package badge renders version-status badge markup. Rendering is pure and
// deterministic: identical inputs always yield byte-identical output, which
// the reconciler's idempotence depends on.
package badge

import (
	"fmt"
	"strings"

	"github.com/releaserun/version-badge-action/internal/models"
)

// HomeURL is the releaserun home page, used by the releaserun-home link mode.
const HomeURL = "https://releaserun.dev"

// badgePageURL is the per-product documentation page prefix.
const badgePageURL = "https://releaserun.dev/badges/"

// Render produces the full badge markup block: one line per product, badge
// units for the requested categories joined by single spaces, in the order
// products and categories were validated.
func Render(products []models.Product, categories []models.BadgeCategory, style models.RenderStyle, mode models.LinkMode, baseURL string) string {
	lines := make([]string, 0, len(products))
	for _, p := range products {
		units := make([]string, 0, len(categories))
		for _, c := range categories {
			units = append(units, Unit(p, c, style, mode, baseURL))
		}
		lines = append(lines, strings.Join(units, " "))
	}
	return strings.Join(lines, "\n")
}

// Count returns the number of badge units Render emits.
func Count(products []models.Product, categories []models.BadgeCategory) int {
	return len(products) * len(categories)
}

// Unit renders a single badge markup unit: [![label](imageUrl)](linkUrl).
func Unit(p models.Product, c models.BadgeCategory, style models.RenderStyle, mode models.LinkMode, baseURL string) string {
	img := ImageURL(p, c, style, baseURL)
	return fmt.Sprintf("[![%s](%s)](%s)", Label(p, c), img, linkURL(p, mode, img))
}

// ImageURL builds the badge-service image URL. The style query is omitted
// for the default flat style to keep common-case URLs stable and short.
func ImageURL(p models.Product, c models.BadgeCategory, style models.RenderStyle, baseURL string) string {
	var b strings.Builder
	b.WriteString(baseURL)
	b.WriteString("/")
	b.WriteString(string(c))
	b.WriteString("/")
	b.WriteString(p.Name)
	if p.Pinned() {
		b.WriteString("/")
		b.WriteString(p.Version)
	}
	b.WriteString(".svg")
	if style != models.StyleFlat {
		b.WriteString("?style=")
		b.WriteString(string(style))
	}
	return b.String()
}

// Label builds the badge alt text: "{product}[ {version}] {categoryLabel}".
func Label(p models.Product, c models.BadgeCategory) string {
	if p.Pinned() {
		return p.Name + " " + p.Version + " " + c.Label()
	}
	return p.Name + " " + c.Label()
}

func linkURL(p models.Product, mode models.LinkMode, imageURL string) string {
	switch mode {
	case models.LinkHome:
		return HomeURL
	case models.LinkImage:
		return imageURL
	default:
		return badgePageURL + p.Name
	}
}
