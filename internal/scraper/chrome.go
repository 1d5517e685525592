package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// Photo bytes and web fonts are dead weight for attribution parsing, so
// sessions block them before navigating.
var blockedAssetPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.woff", "*.woff2", "*.ttf",
}

// ChromeClassifier spawns one headless Chrome per session. Sessions live for
// a single analysis run and are owned by exactly one worker.
type ChromeClassifier struct {
	headless   bool
	navTimeout time.Duration
	identities *IdentityPool
	logger     *zap.Logger
}

func NewChromeClassifier(headless bool, navTimeout time.Duration, identities *IdentityPool, logger *zap.Logger) *ChromeClassifier {
	return &ChromeClassifier{
		headless:   headless,
		navTimeout: navTimeout,
		identities: identities,
		logger:     logger,
	}
}

func (c *ChromeClassifier) NewSession(ctx context.Context, businessTitle string) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", ""),
		chromedp.Flag("disable-dev-shm-usage", ""),
	)
	if ua := c.identities.UserAgent(); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if proxy := c.identities.Proxy(); proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// The first Run launches the process; fail here rather than on a unit.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &chromeSession{
		businessTitle: businessTitle,
		navTimeout:    c.navTimeout,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		logger:        c.logger,
	}, nil
}

type chromeSession struct {
	businessTitle string
	navTimeout    time.Duration
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	logger        *zap.Logger
}

func (s *chromeSession) Classify(ctx context.Context, unit domain.PhotoUnit) (domain.UploaderVerdict, error) {
	if s.browserCtx.Err() != nil {
		return domain.VerdictUnknown, ErrSessionDead
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	// The caller's deadline lives on ctx; tab contexts descend from the
	// browser, so cancellation has to be bridged across.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	navCtx, cancelNav := context.WithTimeout(tabCtx, s.navTimeout)
	defer cancelNav()

	var pageHTML string
	err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedAssetPatterns),
		chromedp.Navigate(unit.URL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		dismissConsent(),
		chromedp.Sleep(750*time.Millisecond),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		if s.browserCtx.Err() != nil {
			return domain.VerdictUnknown, fmt.Errorf("%w: %v", ErrSessionDead, err)
		}
		return domain.VerdictUnknown, fmt.Errorf("inspecting photo %d: %w", unit.Index, err)
	}

	verdict := verdictFromMarkup(pageHTML, s.businessTitle)
	s.logger.Debug("photo classified",
		zap.Int("index", unit.Index),
		zap.String("verdict", string(verdict)))
	return verdict, nil
}

func (s *chromeSession) Close() {
	s.cancelBrowser()
	s.cancelAlloc()
}

// dismissConsent clicks the consent interstitial's reject button when one is
// on the page. It probes without waiting: most regions never show one.
func dismissConsent() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(`button[aria-label="Reject all"]`, &nodes,
			chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return nil
		}
		if len(nodes) == 0 {
			return nil
		}
		_ = chromedp.MouseClickNode(nodes[0]).Do(ctx)
		return nil
	})
}
