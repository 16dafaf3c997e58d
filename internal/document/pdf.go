package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"collisio/internal/report"
)

// ChromePrinter prints HTML to PDF in a headless Chrome.
type ChromePrinter struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
	Timeout  time.Duration
}

// NewChromePrinter returns a printer with a two minute budget per document.
func NewChromePrinter(execPath string) *ChromePrinter {
	return &ChromePrinter{ExecPath: execPath, Timeout: 2 * time.Minute}
}

// Print implements Printer. Output is US Letter with one inch margins.
func (p *ChromePrinter) Print(ctx context.Context, html []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))
	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(1).
				WithMarginBottom(1).
				WithMarginLeft(1).
				WithMarginRight(1).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

// WritePDF renders r to HTML and prints it with p.
func WritePDF(ctx context.Context, p Printer, w io.Writer, r *report.Report) error {
	var html bytes.Buffer
	if err := WriteHTML(&html, r); err != nil {
		return err
	}
	pdf, err := p.Print(ctx, html.Bytes())
	if err != nil {
		return err
	}
	_, err = w.Write(pdf)
	return err
}
