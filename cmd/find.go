// File: cmd/find.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/api/schemas"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/cdphost"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/htmldoc"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/session"
	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
	"github.com/xkilldash9x/scalpel-webdriver/internal/observability"
)

// findOptions holds the parsed flags of the find command.
type findOptions struct {
	htmlFile   string
	url        string
	using      string
	value      string
	attrs      []string
	all        bool
	timeout    time.Duration
	within     string
	shadowHost string
}

// page is a loaded document the find command can query.
type page struct {
	win     element.Window
	xpathOf func(element.Node) string
	close   func() error
}

func newFindCmd() *cobra.Command {
	opts := &findOptions{}

	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Find elements in a page and print their references as JSON",
		Example: `  scalpel-webdriver find --html page.html --using "link text" --value "Sign in"
  scalpel-webdriver find --url https://example.com --using xpath --value "//h1" --all
  scalpel-webdriver find --html page.html --shadow-host "#app" --value "button.ok"`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (opts.htmlFile == "") == (opts.url == "") {
				return fmt.Errorf("exactly one of --html or --url is required")
			}
			if opts.value != "" && len(opts.attrs) > 0 {
				return fmt.Errorf("--value and --attr are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = cfg.Timeouts().Implicit
			}

			return runFind(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	flags := findCmd.Flags()
	flags.StringVar(&opts.htmlFile, "html", "", "HTML file to load into the in-memory DOM")
	flags.StringVar(&opts.url, "url", "", "URL to load in headless Chromium")
	flags.StringVar(&opts.using, "using", "css selector", fmt.Sprintf("location strategy (%s)", strings.Join(element.Strategies(), ", ")))
	flags.StringVar(&opts.value, "value", "", "selector expression")
	flags.StringArrayVar(&opts.attrs, "attr", nil, "name=value pair for the anon attribute strategy")
	flags.BoolVar(&opts.all, "all", false, "return every match instead of the first")
	flags.DurationVar(&opts.timeout, "timeout", 0, "implicit wait (defaults to timeouts.implicit)")
	flags.StringVar(&opts.within, "within", "", "CSS selector of the element to search from")
	flags.StringVar(&opts.shadowHost, "shadow-host", "", "CSS selector of the shadow host to search in")
	return findCmd
}

// runFind loads the page and runs the lookup. Lookup failures are printed as
// protocol error responses and also returned.
func runFind(ctx context.Context, cfg config.Interface, opts *findOptions, out io.Writer) error {
	logger := observability.GetLogger().Named("find")

	params, err := opts.params()
	if err != nil {
		return err
	}

	pg, err := loadPage(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pg.close(); cerr != nil {
			logger.Warn("Failed to close page.", zap.Error(cerr))
		}
	}()

	timeouts := cfg.Timeouts()
	timeouts.Implicit = opts.timeout
	bc := session.New(ctx, pg.win, timeouts, logger)
	defer bc.Close()

	result, err := find(ctx, bc, opts, params)
	if err != nil {
		if werr := writeJSON(out, session.ErrorResponse(err)); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}

	located, err := describe(bc, pg, result)
	if err != nil {
		return err
	}
	return writeJSON(out, located)
}

func find(ctx context.Context, bc *session.BrowsingContext, opts *findOptions, params schemas.Value) (schemas.Value, error) {
	css := func(selector string) schemas.Value {
		return schemas.Map{"using": schemas.String("css selector"), "value": schemas.String(selector)}
	}

	if opts.shadowHost != "" {
		host, err := bc.FindElement(ctx, css(opts.shadowHost))
		if err != nil {
			return nil, err
		}
		if err := bc.SwitchToShadowRoot(host); err != nil {
			return nil, err
		}
	}

	if opts.within != "" {
		start, err := bc.FindElement(ctx, css(opts.within))
		if err != nil {
			return nil, err
		}
		ref, err := session.DecodeReference(start)
		if err != nil {
			return nil, err
		}
		if opts.all {
			return bc.FindElementsFromElement(ctx, ref, params)
		}
		return bc.FindElementFromElement(ctx, ref, params)
	}

	if opts.all {
		return bc.FindElements(ctx, params)
	}
	return bc.FindElement(ctx, params)
}

// params builds the wire parameters of the find command.
func (o *findOptions) params() (schemas.Value, error) {
	m := schemas.Map{"using": schemas.String(o.using)}
	if len(o.attrs) == 0 {
		m["value"] = schemas.String(o.value)
		return m, nil
	}

	attrs := make(schemas.Map, len(o.attrs))
	for _, pair := range o.attrs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --attr %q: expected name=value", pair)
		}
		attrs[name] = schemas.String(value)
	}
	m["value"] = attrs
	return m, nil
}

func loadPage(ctx context.Context, cfg config.Interface, opts *findOptions, logger *zap.Logger) (*page, error) {
	if opts.htmlFile != "" {
		vp := cfg.Browser().Viewport
		doc, err := htmldoc.ParseFile(opts.htmlFile,
			htmldoc.WithViewport(float64(vp.Width), float64(vp.Height)),
			htmldoc.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &page{win: doc.Window(), xpathOf: doc.XPathOf, close: func() error { return nil }}, nil
	}

	b, err := cdphost.Launch(ctx, cfg.Browser(), cfg.Timeouts().Navigation, logger)
	if err != nil {
		return nil, err
	}
	if err := b.Navigate(ctx, opts.url); err != nil {
		_ = b.Close()
		return nil, err
	}
	return &page{win: b.Window(), xpathOf: b.XPathOf, close: b.Close}, nil
}

// describe pairs each returned reference with an XPath locating it.
func describe(bc *session.BrowsingContext, pg *page, result schemas.Value) (interface{}, error) {
	one := func(v schemas.Value) (map[string]string, error) {
		ref, err := session.DecodeReference(v)
		if err != nil {
			return nil, err
		}
		el, err := bc.Store().Get(ref, bc.Container())
		if err != nil {
			return nil, err
		}
		return map[string]string{
			schemas.WebElementKey: ref,
			"xpath":               pg.xpathOf(el),
		}, nil
	}

	seq, ok := result.(schemas.Sequence)
	if !ok {
		return one(result)
	}
	out := make([]map[string]string, 0, len(seq))
	for _, v := range seq {
		d, err := one(v)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
