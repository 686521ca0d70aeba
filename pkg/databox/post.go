package databox

import (
	"strings"
	"time"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
)

// PostContext is the per-render input built from host post data. Build it
// once at the boundary and call Normalize before use.
type PostContext struct {
	PostID int64 `json:"post_id"`

	// Tags keep their submission order; matching is case-insensitive
	Tags []string `json:"tags,omitempty"`

	// IncludedProductSlugs and ExcludedProductSlugs are company/product slugs
	// curated in the editor
	IncludedProductSlugs []string `json:"products_include,omitempty"`
	ExcludedProductSlugs []string `json:"products_exclude,omitempty"`

	PublishedAt *time.Time `json:"published_at,omitempty"`

	IsFeed       bool `json:"is_feed,omitempty"`
	ContentWidth int  `json:"content_width,omitempty"`

	// Disabled is the per-post opt-out set in the editor
	Disabled bool `json:"disabled,omitempty"`

	// Extra is sent to the product API on save-triggered refreshes
	// (post content, title, permalink)
	Extra map[string]any `json:"extra,omitempty"`
}

// Normalize returns a copy with trimmed, deduplicated tags and valid,
// deduplicated product slugs. A slug that is both included and excluded is
// excluded. It is idempotent.
func (p PostContext) Normalize() PostContext {
	p.Tags = NormalizeTags(p.Tags)
	p.ExcludedProductSlugs = normalizeSlugs(p.ExcludedProductSlugs, nil)
	p.IncludedProductSlugs = normalizeSlugs(p.IncludedProductSlugs, p.ExcludedProductSlugs)
	if p.PublishedAt != nil {
		utc := p.PublishedAt.UTC()
		p.PublishedAt = &utc
	}
	if p.ContentWidth < 0 {
		p.ContentWidth = 0
	}
	return p
}

// KeyContext returns the rendering context used for cache keys.
func (p PostContext) KeyContext() cache.KeyContext {
	return cache.KeyContext{IsFeed: p.IsFeed, ContentWidth: p.ContentWidth}
}

// HasInput reports whether there is anything to match products against.
func (p PostContext) HasInput() bool {
	return len(p.Tags) > 0 || len(p.IncludedProductSlugs) > 0
}

// NormalizeTags trims tags, drops empty ones and removes case-insensitive
// duplicates while preserving order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" {
			continue
		}
		folded := strings.ToLower(tag)
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeSlugs keeps valid slugs in order, dropping duplicates and any slug
// listed in skip.
func normalizeSlugs(slugs, skip []string) []string {
	if len(slugs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(slugs)+len(skip))
	for _, slug := range skip {
		seen[slug] = struct{}{}
	}
	out := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		slug = strings.TrimSpace(slug)
		if !client.IsValidSlug(slug) {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
