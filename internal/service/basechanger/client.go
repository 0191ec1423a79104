// Package basechanger drives the NEB Basechanger web form with a headless
// Chrome session. The page has no API; everything here depends on element
// ids and result-table positions, which are collected in Selectors so a site
// change means editing one struct.
package basechanger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"bcprimers/internal/cmdutil"
	"bcprimers/internal/mutation"
	"bcprimers/internal/service"
)

// DefaultURL is the public Basechanger site.
const DefaultURL = "https://nebasechanger.neb.com/"

// Selectors locate the page elements the client touches. Values starting
// with '/' are XPath expressions; everything else is a CSS selector.
type Selectors struct {
	AddSequence    string `mapstructure:"add-sequence"`
	SequenceID     string `mapstructure:"sequence-id"`
	SequenceField  string `mapstructure:"sequence-field"`
	SubmitSequence string `mapstructure:"submit-sequence"`
	UseSequence    string `mapstructure:"use-sequence"`
	Start          string `mapstructure:"start"`
	End            string `mapstructure:"end"`
	Replacement    string `mapstructure:"replacement"`

	ForwardPrimer string `mapstructure:"forward-primer"`
	ReversePrimer string `mapstructure:"reverse-primer"`
	ForwardTm     string `mapstructure:"forward-tm"`
	ReverseTm     string `mapstructure:"reverse-tm"`
	AnnealTm      string `mapstructure:"anneal-tm"`
}

// DefaultSelectors match the site layout the tool was written against.
func DefaultSelectors() Selectors {
	return Selectors{
		AddSequence:    "#addseqbutton",
		SequenceID:     "#seqid",
		SequenceField:  "#seqfield",
		SubmitSequence: "/html/body/div[10]/div[10]/div/button[3]",
		UseSequence:    "/html/body/div[3]/div[1]/div[2]/div[3]/div[2]/label[1]",
		Start:          "#selStart",
		End:            "#selEnd",
		Replacement:    "#repseq",
		ForwardPrimer:  "//table/tbody/tr[2]/td[2]",
		ReversePrimer:  "//table/tbody/tr[3]/td[2]",
		ForwardTm:      "//table/tbody/tr[2]/td[5]",
		ReverseTm:      "//table/tbody/tr[3]/td[5]",
		AnnealTm:       "//table/tbody/tr[2]/td[6]",
	}
}

// withDefaults fills empty fields from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&s.AddSequence, d.AddSequence)
	fill(&s.SequenceID, d.SequenceID)
	fill(&s.SequenceField, d.SequenceField)
	fill(&s.SubmitSequence, d.SubmitSequence)
	fill(&s.UseSequence, d.UseSequence)
	fill(&s.Start, d.Start)
	fill(&s.End, d.End)
	fill(&s.Replacement, d.Replacement)
	fill(&s.ForwardPrimer, d.ForwardPrimer)
	fill(&s.ReversePrimer, d.ReversePrimer)
	fill(&s.ForwardTm, d.ForwardTm)
	fill(&s.ReverseTm, d.ReverseTm)
	fill(&s.AnnealTm, d.AnnealTm)
	return s
}

// Options configure the browser session.
type Options struct {
	URL          string
	Headless     bool
	ExecPath     string        // Chrome binary; empty lets chromedp find one
	Timeout      time.Duration // bound on each page interaction
	PollInterval time.Duration // result-table polling period
	Selectors    Selectors
	Log          *cmdutil.Logger
}

// Client is a service.PrimerService backed by a Chrome tab.
type Client struct {
	opts Options
	sel  Selectors

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	lastForward string
}

var _ service.PrimerService = (*Client)(nil)

// New returns an unopened client; the browser starts in Open.
func New(o Options) *Client {
	if o.URL == "" {
		o.URL = DefaultURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 200 * time.Millisecond
	}
	return &Client{opts: o, sel: o.Selectors.withDefaults()}
}

func by(sel string) chromedp.QueryOption {
	if strings.HasPrefix(sel, "/") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// run executes actions in the tab under the per-interaction timeout; ctx
// cancellation aborts it as well.
func (c *Client) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.tab == nil {
		return service.ErrNotOpen
	}
	tctx, cancel := context.WithTimeout(c.tab, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) Open(ctx context.Context, seqID, sequence string) error {
	fail := func(err error) error { return &service.RemoteServiceError{Op: "open", Err: err} }

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", c.opts.Headless))
	if c.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)
	c.tab, c.cancelTab, c.cancelAlloc = tab, cancelTab, cancelAlloc

	// first Run starts the browser; keep it outside the interaction timeout
	if err := chromedp.Run(tab); err != nil {
		_ = c.Close()
		return fail(fmt.Errorf("start browser: %w", err))
	}

	s := c.sel
	c.opts.Log.Infof("opening %s", c.opts.URL)
	err := c.run(ctx,
		chromedp.Navigate(c.opts.URL),
		chromedp.WaitVisible(s.AddSequence, by(s.AddSequence)),
		chromedp.Click(s.AddSequence, by(s.AddSequence)),
		chromedp.WaitVisible(s.SequenceID, by(s.SequenceID)),
		chromedp.SendKeys(s.SequenceID, seqID, by(s.SequenceID)),
		chromedp.SendKeys(s.SequenceField, sequence, by(s.SequenceField)),
		chromedp.Click(s.SubmitSequence, by(s.SubmitSequence)),
		chromedp.WaitNotVisible(s.SequenceField, by(s.SequenceField)),
		chromedp.WaitVisible(s.UseSequence, by(s.UseSequence)),
		chromedp.Click(s.UseSequence, by(s.UseSequence)),
		chromedp.WaitVisible(s.Start, by(s.Start)),
	)
	if err != nil {
		_ = c.Close()
		return fail(err)
	}
	return nil
}

func (c *Client) SetRange(ctx context.Context, r mutation.Range) error {
	s := c.sel
	err := c.run(ctx,
		chromedp.SendKeys(s.Start, strconv.Itoa(r.Start), by(s.Start)),
		chromedp.SendKeys(s.End, strconv.Itoa(r.Stop), by(s.End)),
	)
	if err != nil {
		return &service.RemoteServiceError{Op: "set range", Position: r.ProteinPos, Err: err}
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, r mutation.Range, codon string) (Result, error) {
	fail := func(err error) (Result, error) {
		return Result{}, &service.RemoteServiceError{Op: "generate", Position: r.ProteinPos, Codon: codon, Err: err}
	}
	s := c.sel
	// SendKeys appends, so empty the field left over from a failed attempt
	err := c.run(ctx,
		chromedp.Clear(s.Replacement, by(s.Replacement)),
		chromedp.SendKeys(s.Replacement, codon, by(s.Replacement)),
	)
	if err != nil {
		c.resetReplacement(ctx)
		return fail(err)
	}
	res, err := c.awaitResult(ctx, codon)
	if err != nil {
		c.resetReplacement(ctx)
		return fail(err)
	}
	if err := c.run(ctx, chromedp.Clear(s.Replacement, by(s.Replacement))); err != nil {
		return fail(fmt.Errorf("clear replacement: %w", err))
	}
	c.lastForward = res.Forward
	return res, nil
}

// resetReplacement empties the codon field after a failed Generate. A
// cancelled run closes the session instead, so it is skipped then.
func (c *Client) resetReplacement(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := c.run(ctx, chromedp.Clear(c.sel.Replacement, by(c.sel.Replacement))); err != nil {
		c.opts.Log.Warnf("clear replacement: %v", err)
	}
}

// Result is re-exported so callers of this package need not import service.
type Result = service.Result

// awaitResult polls the results table until every field parses and accept
// takes the row.
func (c *Client) awaitResult(ctx context.Context, codon string) (Result, error) {
	s := c.sel
	js, err := cellsScript([]string{s.ForwardPrimer, s.ReversePrimer, s.ForwardTm, s.ReverseTm, s.AnnealTm})
	if err != nil {
		return Result{}, err
	}
	deadline := time.Now().Add(c.opts.Timeout)
	var lastErr error
	for {
		var cells []string
		if err := c.run(ctx, chromedp.Evaluate(js, &cells)); err != nil {
			return Result{}, err
		}
		res, perr := parseCells(cells)
		if perr == nil {
			perr = accept(res, codon, c.lastForward)
		}
		if perr == nil {
			return res, nil
		}
		lastErr = perr
		if time.Now().After(deadline) {
			return Result{}, fmt.Errorf("%w: %v", context.DeadlineExceeded, lastErr)
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(c.opts.PollInterval):
		}
	}
}

// accept checks that res answers a request for codon: the table changed
// since the last result and the forward primer carries the codon. A page
// that recomputes on each keystroke can show a row for a partial codon.
func accept(res Result, codon, last string) error {
	if res.Forward == last {
		return errors.New("results table did not update")
	}
	if !strings.Contains(res.Forward, strings.ToUpper(codon)) {
		return fmt.Errorf("forward primer %s does not carry codon %s", res.Forward, codon)
	}
	return nil
}

func (c *Client) ClearRange(ctx context.Context) error {
	s := c.sel
	err := c.run(ctx,
		chromedp.Clear(s.Start, by(s.Start)),
		chromedp.Clear(s.End, by(s.End)),
	)
	if err != nil {
		return &service.RemoteServiceError{Op: "clear range", Err: err}
	}
	return nil
}

func (c *Client) Close() error {
	if c.cancelTab != nil {
		c.cancelTab()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
	c.tab, c.cancelTab, c.cancelAlloc = nil, nil, nil
	return nil
}

// cellsScript builds a JS expression returning the trimmed text of each
// selector (or "" when the node is missing). Selectors follow the same rule
// as by: a leading '/' means XPath, anything else CSS. It never blocks,
// unlike chromedp.Text, which waits for the node to exist.
func cellsScript(sels []string) (string, error) {
	b, err := json.Marshal(sels)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(function(xs){return xs.map(function(x){`+
		`var n=x.charAt(0)==="/"`+
		`?document.evaluate(x,document,null,XPathResult.FIRST_ORDERED_NODE_TYPE,null).singleNodeValue`+
		`:document.querySelector(x);`+
		`return n?n.textContent.trim():"";});})(%s)`, b), nil
}

var numRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseTemp extracts the first number from a cell such as "62 °C".
func parseTemp(cell string) (float64, error) {
	m := numRe.FindString(cell)
	if m == "" {
		return 0, fmt.Errorf("no temperature in %q", cell)
	}
	return strconv.ParseFloat(m, 64)
}

func parseCells(cells []string) (Result, error) {
	if len(cells) != 5 {
		return Result{}, fmt.Errorf("expected 5 result cells, got %d", len(cells))
	}
	var res Result
	var err error
	if res.ForwardTm, err = parseTemp(cells[2]); err != nil {
		return Result{}, fmt.Errorf("forward Tm: %w", err)
	}
	if res.ReverseTm, err = parseTemp(cells[3]); err != nil {
		return Result{}, fmt.Errorf("reverse Tm: %w", err)
	}
	if res.AnnealTm, err = parseTemp(cells[4]); err != nil {
		return Result{}, fmt.Errorf("anneal Tm: %w", err)
	}
	res.Forward, res.Reverse = cells[0], cells[1]
	return service.Check(res)
}
