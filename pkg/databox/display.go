package databox

import (
	"strings"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/client"
)

// DefaultMinContentWidth is the narrowest theme content area (pixels) that
// gets a databox.
const DefaultMinContentWidth = 550

// DisplayConfig holds the site-wide settings that shape the databox. It is
// owned by the site administrator and passed explicitly into every call.
type DisplayConfig struct {
	MaxProducts        int        `json:"max_products" koanf:"maxProducts"`
	ExpandAllProducts  bool       `json:"expand_all_products" koanf:"expandAllProducts"`
	SchemaOrgEnabled   bool       `json:"schema_org" koanf:"schemaOrg"`
	FeedIncludeEnabled bool       `json:"feed_include" koanf:"feedInclude"`
	BlogID             int64      `json:"blog_id" koanf:"blogID"`
	MinContentWidth    int        `json:"min_content_width" koanf:"minContentWidth"`
	StopTags           []string   `json:"stop_tags" koanf:"stopTags"`
	Tabs               cache.Tabs `json:"tabs" koanf:"tabs"`
}

// DefaultDisplayConfig returns the settings of a fresh install.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		MaxProducts:      client.MaxLimit,
		SchemaOrgEnabled: true,
		MinContentWidth:  DefaultMinContentWidth,
		Tabs:             cache.AllTabs(),
	}
}

// Normalize clamps MaxProducts and lowercases stop tags.
func (c DisplayConfig) Normalize() DisplayConfig {
	c.MaxProducts = client.ClampLimit(c.MaxProducts)
	if c.MinContentWidth < 0 {
		c.MinContentWidth = 0
	}
	if c.BlogID < 0 {
		c.BlogID = 0
	}
	if len(c.StopTags) > 0 {
		stop := make([]string, 0, len(c.StopTags))
		for _, tag := range NormalizeTags(c.StopTags) {
			stop = append(stop, strings.ToLower(tag))
		}
		c.StopTags = stop
	}
	return c
}

// KeyConfig returns the cache-relevant part of the configuration.
func (c DisplayConfig) KeyConfig() cache.KeyConfig {
	return cache.KeyConfig{
		BlogID:      c.BlogID,
		MaxProducts: c.MaxProducts,
		Tabs:        c.Tabs,
		ExpandAll:   c.ExpandAllProducts,
		SchemaOrg:   c.SchemaOrgEnabled,
	}
}

// SkipReason explains why a post gets no databox before any lookup.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipDisabled    SkipReason = "disabled"
	SkipStopTag     SkipReason = "stop_tag"
	SkipNarrowTheme SkipReason = "narrow_theme"
	SkipFeed        SkipReason = "feed_disabled"
)

// Eligibility reports why post should not get a databox under cfg, or
// SkipNone. Both values are expected to be normalized.
func Eligibility(post PostContext, cfg DisplayConfig) SkipReason {
	if post.Disabled {
		return SkipDisabled
	}
	if post.IsFeed && !cfg.FeedIncludeEnabled {
		return SkipFeed
	}
	if !post.IsFeed && post.ContentWidth > 0 && post.ContentWidth < cfg.MinContentWidth {
		return SkipNarrowTheme
	}
	if len(cfg.StopTags) > 0 {
		stop := make(map[string]struct{}, len(cfg.StopTags))
		for _, tag := range cfg.StopTags {
			stop[tag] = struct{}{}
		}
		for _, tag := range post.Tags {
			if _, ok := stop[strings.ToLower(tag)]; ok {
				return SkipStopTag
			}
		}
	}
	return SkipNone
}
