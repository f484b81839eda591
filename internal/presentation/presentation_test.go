package presentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/simp-lee/vaultfeed/internal/feed"
)

func TestSelectLayout(t *testing.T) {
	tests := []struct {
		width int
		want  Layout
	}{
		{0, LayoutDesktop},
		{-1, LayoutDesktop},
		{375, LayoutMobile},
		{768, LayoutMobile},
		{769, LayoutDesktop},
		{1440, LayoutDesktop},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectLayout(tt.width, DefaultBreakpoint), "width %d", tt.width)
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLoadingText_CyclesFrames(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lt := NewLoadingText(clock.now)

	assert.Equal(t, "", lt.Text())

	lt.Observe(feed.Output{Loading: true})
	want := []string{"Loading", "Loading .", "Loading ..", "Loading ...", "Loading"}
	for i, w := range want {
		assert.Equal(t, w, lt.Text(), "frame %d", i)
		clock.advance(250 * time.Millisecond)
	}

	// A second loading output does not restart the animation.
	lt.Observe(feed.Output{Loading: true})
	assert.Equal(t, "Loading .", lt.Text())

	lt.Observe(feed.Output{Loading: false})
	assert.Equal(t, "", lt.Text())

	lt.Observe(feed.Output{Loading: true})
	assert.Equal(t, "Loading", lt.Text())
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Loading ..", StatusLine(feed.Output{Loading: true, ResultCount: 4}, "Loading .."))
	assert.Equal(t, "Loading", StatusLine(feed.Output{Loading: true}, ""))
	assert.Equal(t, EmptyText, StatusLine(feed.Output{}, ""))

	out := feed.Output{ResultCount: 13, TotalPages: 3}
	out.Page = 2
	assert.Equal(t, "Page 2 of 3", StatusLine(out, ""))
}

func TestRender(t *testing.T) {
	out := feed.Output{State: feed.DefaultState(), TotalPages: 2, ResultCount: 7, Status: feed.StatusPopulated}

	page := Render(out, 1280, DefaultBreakpoint, "")
	assert.Equal(t, LayoutDesktop, page.Layout)
	assert.Equal(t, "Page 1 of 2", page.StatusText)
	assert.Len(t, page.Filters, 3)
	assert.Len(t, page.SortOrders, 2)

	out.Loading = true
	page = Render(out, 320, DefaultBreakpoint, "Loading ..")
	assert.Equal(t, LayoutMobile, page.Layout)
	assert.Equal(t, "Loading ..", page.StatusText)
}
