// File: internal/browser/cdphost/browser.go
package cdphost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
)

// callTimeout bounds a single DOM round trip.
const callTimeout = 10 * time.Second

// Browser is a live Chromium tab exposed through the element capability
// interfaces. Every DOM operation is a CDP round trip against the tab.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	navTimeout  time.Duration
	win         *Window
}

// execOptions turns the browser config into allocator options.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("enable-automation", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
	}

	// Extra args are "--flag" or "--flag=value".
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Launch starts a browser process and opens a tab on about:blank.
func Launch(ctx context.Context, cfg config.BrowserConfig, navTimeout time.Duration, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cdphost")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(cfg)...)
	ctxOpts := []chromedp.ContextOption{}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(logger.Sugar().Debugf))
	}
	tabCtx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	actions := []chromedp.Action{}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(cfg.Viewport.Width), int64(cfg.Viewport.Height)))
	}
	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b := newBrowser(tabCtx, logger, navTimeout)
	b.cancel = cancel
	b.allocCancel = allocCancel
	logger.Info("Browser started.", zap.Bool("headless", cfg.Headless))
	return b, nil
}

// Attach wraps an existing chromedp tab context. Closing the returned
// Browser does not close the tab.
func Attach(tabCtx context.Context, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newBrowser(tabCtx, logger.Named("cdphost"), 0)
}

func newBrowser(ctx context.Context, logger *zap.Logger, navTimeout time.Duration) *Browser {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	b := &Browser{ctx: ctx, logger: logger, navTimeout: navTimeout}
	b.win = &Window{b: b}
	return b
}

// Window returns the tab's window.
func (b *Browser) Window() *Window { return b.win }

// Navigate loads url and waits for the load event.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, b.navTimeout)
	defer cancel()

	// Run against the tab, bounded by the caller's context.
	runCtx, runCancel := context.WithCancel(b.ctx)
	defer runCancel()
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	// Nodes of the current page die with it, so their objects go first.
	if err := chromedp.Run(runCtx, runtime.ReleaseObjectGroup(objectGroup), chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	b.logger.Debug("Navigated.", zap.String("url", url))
	return nil
}

// Close shuts the tab and, for launched browsers, the browser process.
func (b *Browser) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

// run executes fn against the tab with a bounded per-call timeout.
func (b *Browser) run(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(b.ctx, callTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.ActionFunc(fn))
}

// XPathOf returns an XPath locating n in the page, anchored on the nearest
// ancestor with an id when there is one.
func (b *Browser) XPathOf(n element.Node) string {
	r, ok := n.(remote)
	if !ok {
		return ""
	}
	var path string
	err := b.run(func(ctx context.Context) error {
		return b.callValue(ctx, r.ref().obj, xpathOfJS, &path, nil)
	})
	if err != nil {
		b.logger.Debug("Failed to build XPath.", zap.Error(err))
	}
	return path
}

const xpathOfJS = `function() {
	const segs = [];
	for (let n = this; n && n.nodeType === 1; n = n.parentNode) {
		if (n.id && !n.id.includes("'")) {
			return "//*[@id='" + n.id + "']" + (segs.length ? "/" + segs.join("/") : "");
		}
		let i = 1;
		for (let s = n.previousElementSibling; s; s = s.previousElementSibling) {
			if (s.localName === n.localName) i++;
		}
		segs.unshift(n.localName + "[" + i + "]");
	}
	return "/" + segs.join("/");
}`
