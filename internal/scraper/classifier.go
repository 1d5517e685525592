// Package scraper runs the photo-attribution stage: a bounded pool of
// browser workers classifies each listing photo as owner-uploaded,
// customer-uploaded, or unknown.
package scraper

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// ErrSessionDead marks a session whose browser is gone for good. The worker
// that sees it respawns; any other error is a per-unit fault worth retrying
// on the same session.
var ErrSessionDead = errors.New("classifier session dead")

// Classifier opens browsing sessions that judge who uploaded each photo of
// one business. It is the single swappable piece of the scraping stage: the
// markup heuristic inside can change without touching pool or scoring logic.
type Classifier interface {
	NewSession(ctx context.Context, businessTitle string) (Session, error)
}

// Session is one live browser serving one analysis run. Classify returns an
// error only for retryable faults (timeout, navigation failure, dead
// browser); a photo with no recognizable attribution is a clean
// VerdictUnknown, not an error.
type Session interface {
	Classify(ctx context.Context, unit domain.PhotoUnit) (domain.UploaderVerdict, error)
	Close()
}

// Selector fallbacks for the gallery lightbox attribution block. The first
// entries are the current markup; the rest are older generations still seen
// on some listings.
var (
	attributionContainerSelectors = []string{
		"div.JHngof",
		"div.UXc6zc",
		`div[data-photo-attribution]`,
	}
	uploaderNameSelectors = []string{
		"span.ilzTS",
		"span.fontBodyMedium",
		"a[aria-label]",
	}
)

// verdictFromMarkup maps lightbox HTML to a verdict. An uploader name
// containing the business title or the word "owner" is the business itself;
// any other non-blank name is a customer; no recognizable signal is Unknown.
func verdictFromMarkup(html, businessTitle string) domain.UploaderVerdict {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.VerdictUnknown
	}

	uploader := findUploaderName(doc)
	if uploader == "" {
		return domain.VerdictUnknown
	}

	name := strings.ToLower(uploader)
	title := strings.ToLower(strings.TrimSpace(businessTitle))
	if strings.Contains(name, "owner") || (title != "" && strings.Contains(name, title)) {
		return domain.VerdictOwner
	}
	return domain.VerdictCustomer
}

func findUploaderName(doc *goquery.Document) string {
	for _, containerSel := range attributionContainerSelectors {
		container := doc.Find(containerSel).First()
		if container.Length() == 0 {
			continue
		}
		for _, nameSel := range uploaderNameSelectors {
			if text := strings.TrimSpace(container.Find(nameSel).First().Text()); text != "" {
				return text
			}
		}
		if text := strings.TrimSpace(container.Text()); text != "" {
			return text
		}
	}
	return ""
}
