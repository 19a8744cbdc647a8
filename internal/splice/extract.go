package splice

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BadgeRef describes one badge unit found in a document region.
type BadgeRef struct {
	AltText   string
	ImageURL  string
	TargetURL string
}

// ExtractBadges parses a document region and returns the badge units in it,
// in document order. A badge unit is a link wrapping an image, which is the
// only shape the renderer emits.
func ExtractBadges(region []byte) []BadgeRef {
	var badges []BadgeRef

	md := goldmark.New()
	reader := text.NewReader(region)
	doc := md.Parser().Parse(reader)

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if link, ok := n.(*ast.Link); ok {
			for child := link.FirstChild(); child != nil; child = child.NextSibling() {
				if img, ok := child.(*ast.Image); ok {
					badges = append(badges, BadgeRef{
						AltText:   string(img.Text(region)),
						ImageURL:  string(img.Destination),
						TargetURL: string(link.Destination),
					})
				}
			}
		}
		return ast.WalkContinue, nil
	})

	return badges
}
