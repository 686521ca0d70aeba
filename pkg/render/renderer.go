// Package render turns product records into databox HTML. Three variants
// exist: the full databox, the mini databox for narrow themes and the feed
// databox, which carries its CSS inline.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	sprig "github.com/Masterminds/sprig/v3"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
	"github.com/Sternrassler/gdgt-databox/pkg/databox"
)

// Mode selects the markup variant.
type Mode string

const (
	ModeFull Mode = "full"
	ModeMini Mode = "mini"
	ModeFeed Mode = "feed"
)

// ModeFor returns the variant rendered for the given context.
func ModeFor(kc cache.KeyContext) Mode {
	switch {
	case kc.IsFeed:
		return ModeFeed
	case kc.IsMini():
		return ModeMini
	default:
		return ModeFull
	}
}

type tab struct {
	Label string
	Path  string
}

type productView struct {
	client.ProductRecord
	Expanded bool
	Feed     bool
	Mini     bool
	Tabs     []tab
}

type databoxView struct {
	Feed     bool
	Mini     bool
	Products []productView
}

// Renderer renders databox markup. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New compiles the databox templates.
func New() (*Renderer, error) {
	funcs := sprig.FuncMap()
	// templates are compiled in-process; no environment access
	delete(funcs, "env")
	delete(funcs, "expandenv")

	funcs["style"] = func(name string) template.CSS {
		return template.CSS(feedStyles[name])
	}
	funcs["price"] = formatPrice

	tmpl, err := template.New("root").Funcs(funcs).Option("missingkey=zero").Parse(databoxTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: compile: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render returns the databox HTML for products, or "" when none of them can
// be shown. The list is truncated to cfg.MaxProducts; the first product is
// expanded and the rest collapsed unless cfg.ExpandAllProducts is set.
func (r *Renderer) Render(products []client.ProductRecord, cfg databox.DisplayConfig, kc cache.KeyContext) (string, error) {
	limit := client.ClampLimit(cfg.MaxProducts)
	if len(products) > limit {
		products = products[:limit]
	}

	mode := ModeFor(kc)
	view := databoxView{
		Feed: mode == ModeFeed,
		Mini: mode == ModeMini,
	}

	tabs := tabsFor(cfg.Tabs)
	expanded := true
	for _, p := range products {
		if strings.TrimSpace(p.URL) == "" {
			continue
		}
		view.Products = append(view.Products, productView{
			ProductRecord: p,
			Expanded:      expanded,
			Feed:          view.Feed,
			Mini:          view.Mini,
			Tabs:          tabs,
		})
		if !cfg.ExpandAllProducts {
			expanded = false
		}
	}
	if len(view.Products) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "databox", view); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", mode, err)
	}
	return buf.String(), nil
}

func tabsFor(t cache.Tabs) []tab {
	var tabs []tab
	if t.Specs {
		tabs = append(tabs, tab{Label: "Specs", Path: "specs/"})
	}
	if t.Reviews {
		tabs = append(tabs, tab{Label: "Reviews", Path: "reviews/"})
	}
	if t.Prices {
		tabs = append(tabs, tab{Label: "Prices", Path: "prices/"})
	}
	if t.Answers {
		tabs = append(tabs, tab{Label: "Answers", Path: "qa/"})
	}
	if t.Discussions {
		tabs = append(tabs, tab{Label: "Discussions", Path: "discussions/"})
	}
	return tabs
}

func formatPrice(p *client.Price) string {
	if p == nil {
		return ""
	}
	var s string
	switch strings.ToUpper(p.Currency) {
	case "", "USD":
		s = "$" + strconv.Itoa(p.Amount)
	default:
		s = strconv.Itoa(p.Amount) + " " + strings.ToUpper(p.Currency)
	}
	if p.OnContract {
		s += " on contract"
	}
	return s
}
