package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
	"github.com/Sternrassler/gdgt-databox/pkg/databox"
)

func products(n int) []client.ProductRecord {
	out := make([]client.ProductRecord, n)
	for i := range out {
		out[i] = client.ProductRecord{
			Slug:    fmt.Sprintf("acme/widget-%d", i+1),
			Name:    fmt.Sprintf("Widget %d", i+1),
			URL:     fmt.Sprintf("http://gdgt.com/acme/widget-%d/", i+1),
			Company: "Acme",
		}
	}
	return out
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		kc   cache.KeyContext
		want Mode
	}{
		{cache.KeyContext{}, ModeFull},
		{cache.KeyContext{ContentWidth: 700}, ModeFull},
		{cache.KeyContext{ContentWidth: 600}, ModeMini},
		{cache.KeyContext{ContentWidth: 600, IsFeed: true}, ModeFeed},
		{cache.KeyContext{IsFeed: true}, ModeFeed},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, ModeFor(tc.kc), "context %+v", tc.kc)
	}
}

func TestRenderFull(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	cfg := databox.DefaultDisplayConfig()
	html, err := r.Render(products(3), cfg, cache.KeyContext{ContentWidth: 700})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(html, `<div class="gdgt-wrapper"`), html)
	require.Contains(t, html, `role="complementary tablist"`)
	require.Equal(t, 3, strings.Count(html, `data-product=`))
	require.Equal(t, 1, strings.Count(html, "gdgt-product-open"), "only the first product is expanded")
	require.Contains(t, html, `<a href="http://gdgt.com/acme/widget-1/specs/">Specs</a>`)
	require.Contains(t, html, `<a href="http://gdgt.com/acme/widget-1/discussions/">Discussions</a>`)
	require.NotContains(t, html, "style=")
}

func TestRenderExpandAll(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	cfg := databox.DefaultDisplayConfig()
	cfg.ExpandAllProducts = true
	html, err := r.Render(products(3), cfg, cache.KeyContext{})
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(html, "gdgt-product-open"))
}

func TestRenderMini(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	p := products(1)
	p[0].Image = "http://gdgt.com/img/widget.png"
	html, err := r.Render(p, databox.DefaultDisplayConfig(), cache.KeyContext{ContentWidth: 600})
	require.NoError(t, err)
	require.Contains(t, html, `class="gdgt-wrapper mini"`)
	require.NotContains(t, html, "<img", "mini databox omits product images")
}

func TestRenderFeedInlinesCSS(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	cfg := databox.DefaultDisplayConfig()
	cfg.Tabs = cache.Tabs{Reviews: true}
	html, err := r.Render(products(2), cfg, cache.KeyContext{IsFeed: true, ContentWidth: 600})
	require.NoError(t, err)

	require.NotContains(t, html, "mini")
	require.NotContains(t, html, "role=")
	require.Contains(t, html, `style="margin:1em 0;`)
	require.Contains(t, html, "Reviews")
	require.NotContains(t, html, "Specs")
}

func TestRenderTruncatesAndSkipsProductsWithoutURL(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	p := products(15)
	p[0].URL = ""
	cfg := databox.DefaultDisplayConfig()
	cfg.MaxProducts = 10

	html, err := r.Render(p, cfg, cache.KeyContext{})
	require.NoError(t, err)
	require.Equal(t, 9, strings.Count(html, `data-product=`))
	require.NotContains(t, html, "widget-11")
	require.Contains(t, html, `data-product="acme/widget-2" role="tab" aria-expanded="true"`,
		"first renderable product is expanded")
}

func TestRenderNothingRenderable(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render(nil, databox.DefaultDisplayConfig(), cache.KeyContext{})
	require.NoError(t, err)
	require.Empty(t, html)

	html, err = r.Render([]client.ProductRecord{{Slug: "a/b", Name: "B"}}, databox.DefaultDisplayConfig(), cache.KeyContext{})
	require.NoError(t, err)
	require.Empty(t, html)
}

func TestRenderEscapesAndDetails(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	p := []client.ProductRecord{{
		Slug:        "acme/widget",
		Name:        `Widget <script>alert(1)</script>`,
		URL:         "http://gdgt.com/acme/widget/",
		Instances:   "16GB,32GB",
		Company:     "Acme",
		CompanyURL:  "http://gdgt.com/acme/",
		LowestPrice: &client.Price{Amount: 199, Currency: "usd"},
	}}
	html, err := r.Render(p, databox.DefaultDisplayConfig(), cache.KeyContext{})
	require.NoError(t, err)

	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "(16GB, 32GB)")
	require.Contains(t, html, `by <a href="http://gdgt.com/acme/">Acme</a>`)
	require.Contains(t, html, "Lowest price: $199")
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price *client.Price
		want  string
	}{
		{nil, ""},
		{&client.Price{Amount: 99}, "$99"},
		{&client.Price{Amount: 199, Currency: "EUR"}, "199 EUR"},
		{&client.Price{Amount: 0, Currency: "USD", OnContract: true}, "$0 on contract"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, formatPrice(tc.price))
	}
}
