// Package splice replaces the marker-delimited badge region of a document.
// Everything strictly between the two sentinel lines is owned by the action
// and overwritten on every run; everything outside is preserved verbatim.
package splice

import (
	"strings"

	"github.com/releaserun/version-badge-action/internal/models"
)

// The sentinel comment lines delimiting the managed region.
const (
	StartMarker = "<!-- releaserun-badges:start -->"
	EndMarker   = "<!-- releaserun-badges:end -->"
)

// Splice replaces the content strictly between the sentinels with the
// markup, surrounded by single newlines. Missing or out-of-order sentinels
// yield MarkersFound=false with the document untouched; that is not an
// error, it signals there is nothing to do. Changed is false when the
// reconstructed document is byte-identical to the original.
func Splice(doc, markup string) models.SpliceResult {
	start := strings.Index(doc, StartMarker)
	end := strings.Index(doc, EndMarker)
	if start < 0 || end < 0 || end <= start {
		return models.SpliceResult{Content: doc}
	}

	content := doc[:start+len(StartMarker)] + "\n" + markup + "\n" + doc[end:]
	return models.SpliceResult{
		MarkersFound: true,
		Changed:      content != doc,
		Content:      content,
	}
}

// ManagedRegion returns the text strictly between the sentinels and whether
// both sentinels were found in order.
func ManagedRegion(doc string) (string, bool) {
	start := strings.Index(doc, StartMarker)
	end := strings.Index(doc, EndMarker)
	if start < 0 || end < 0 || end <= start {
		return "", false
	}
	return doc[start+len(StartMarker) : end], true
}
