// Package presentation holds the rendering-side observers of a feed view:
// layout selection by viewport width, the animated loading text, and the
// status line shown under the activity list.
package presentation

import (
	"fmt"
	"sync"
	"time"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/feed"
)

// Layout is the rendering strategy for the activity list.
type Layout string

const (
	LayoutDesktop Layout = "desktop"
	LayoutMobile  Layout = "mobile"
)

// DefaultBreakpoint is the widest viewport, in pixels, that still gets the
// mobile layout.
const DefaultBreakpoint = 768

// SelectLayout picks the desktop layout for viewports wider than breakpoint.
// An unknown width (<= 0) gets the desktop layout.
func SelectLayout(width, breakpoint int) Layout {
	if width <= 0 || width > breakpoint {
		return LayoutDesktop
	}
	return LayoutMobile
}

// EmptyText is shown when a loaded feed has nothing to display.
const EmptyText = "There is currently no vault activity"

var loadingFrames = []string{"Loading", "Loading .", "Loading ..", "Loading ..."}

const loadingFrameInterval = 250 * time.Millisecond

// LoadingText animates the loading label. It observes a view's output and
// restarts the animation each time loading begins. Safe for concurrent use.
type LoadingText struct {
	mu      sync.Mutex
	now     func() time.Time
	loading bool
	since   time.Time
}

// NewLoadingText returns a LoadingText driven by now; nil means time.Now.
func NewLoadingText(now func() time.Time) *LoadingText {
	if now == nil {
		now = time.Now
	}
	return &LoadingText{now: now}
}

// Observe implements feed.Observer.
func (l *LoadingText) Observe(out feed.Output) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if out.Loading && !l.loading {
		l.since = l.now()
	}
	l.loading = out.Loading
}

// Text returns the current frame, or "" when nothing is loading.
func (l *LoadingText) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loading {
		return ""
	}
	elapsed := l.now().Sub(l.since)
	frame := int(elapsed/loadingFrameInterval) % len(loadingFrames)
	return loadingFrames[frame]
}

// StatusLine returns the text under the list: the loading animation while
// the source is loading, EmptyText when there are no results, and the page
// position otherwise.
func StatusLine(out feed.Output, loadingText string) string {
	if out.Loading {
		if loadingText == "" {
			loadingText = loadingFrames[0]
		}
		return loadingText
	}
	if out.ResultCount <= 0 {
		return EmptyText
	}
	return fmt.Sprintf("Page %d of %d", out.Page, out.TotalPages)
}

// Page is a rendered feed output together with what a client needs to
// draw it.
type Page struct {
	feed.Output
	Layout     Layout                  `json:"layout"`
	StatusText string                  `json:"status_text"`
	Filters    []domain.ActivityFilter `json:"filters"`
	SortOrders []domain.SortBy         `json:"sort_orders"`
}

// Render decorates out for a viewport of the given width. loadingText is
// the current LoadingText frame, if the caller animates one.
func Render(out feed.Output, width, breakpoint int, loadingText string) Page {
	return Page{
		Output:     out,
		Layout:     SelectLayout(width, breakpoint),
		StatusText: StatusLine(out, loadingText),
		Filters:    domain.ActivityFilters,
		SortOrders: domain.SortOrders,
	}
}
