package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

// Tab wraps a Rod page behind the small evaluation surface the discovery and
// transcript packages consume. All page driving goes through JS evaluation;
// the domain packages own their snippets.
type Tab struct {
	page *rod.Page
	log  *slog.Logger

	// dispose releases the tab's incognito browser context. Set only on
	// isolated tabs; shared tabs have no context of their own.
	dispose func() error
}

// Navigate loads url and waits for the load event, bounded by timeout. A
// load-event timeout alone is tolerated: long-tail requests keep some pages
// "loading" even though the DOM is usable.
func (t *Tab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := t.page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := t.page.Context(navCtx).WaitLoad(); err != nil {
		t.log.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

// EvalString evaluates js (a function expression) and returns its result as
// a string.
func (t *Tab) EvalString(ctx context.Context, js string) (string, error) {
	res, err := t.page.Context(ctx).Eval(js)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Str(), nil
}

// EvalBool evaluates js and returns its boolean result.
func (t *Tab) EvalBool(ctx context.Context, js string) (bool, error) {
	res, err := t.page.Context(ctx).Eval(js)
	if err != nil {
		return false, fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Bool(), nil
}

// EvalFloat evaluates js and returns its numeric result.
func (t *Tab) EvalFloat(ctx context.Context, js string) (float64, error) {
	res, err := t.page.Context(ctx).Eval(js)
	if err != nil {
		return 0, fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Num(), nil
}

// Sleep pauses for d or until ctx is cancelled, whichever comes first.
func (t *Tab) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close closes the page and, for isolated tabs, disposes the incognito
// context it lives in. The context goes even when closing the page failed.
func (t *Tab) Close() error {
	var pageErr error
	if t.page != nil {
		pageErr = t.page.Close()
	}
	if t.dispose != nil {
		if err := t.dispose(); err != nil {
			t.log.Warn("browser: dispose incognito context failed", "error", err)
			if pageErr == nil {
				pageErr = err
			}
		}
	}
	return pageErr
}
