package databox

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"trims and drops blanks", []string{" drone ", "", "  "}, []string{"drone"}},
		{"case-insensitive duplicates keep first", []string{"iPhone", "iphone", "IPHONE"}, []string{"iPhone"}},
		{"collapses inner whitespace", []string{"apple  tv"}, []string{"apple tv"}},
		{"keeps order", []string{"b", "a", "c"}, []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTags(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostContext_Normalize(t *testing.T) {
	local := time.Date(2026, 1, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	post := PostContext{
		PostID:               1,
		Tags:                 []string{" a ", "A"},
		IncludedProductSlugs: []string{"apple/iphone", " apple/iphone ", "nope", "/x"},
		ExcludedProductSlugs: []string{"bad slug/x"},
		PublishedAt:          &local,
		ContentWidth:         -5,
	}

	got := post.Normalize()

	if !reflect.DeepEqual(got.Tags, []string{"a"}) {
		t.Errorf("Tags = %v", got.Tags)
	}
	if !reflect.DeepEqual(got.IncludedProductSlugs, []string{"apple/iphone"}) {
		t.Errorf("IncludedProductSlugs = %v", got.IncludedProductSlugs)
	}
	if got.ExcludedProductSlugs != nil {
		t.Errorf("ExcludedProductSlugs = %v, want nil", got.ExcludedProductSlugs)
	}
	if got.PublishedAt.Location() != time.UTC || !got.PublishedAt.Equal(local) {
		t.Errorf("PublishedAt = %v, want same instant in UTC", got.PublishedAt)
	}
	if got.ContentWidth != 0 {
		t.Errorf("ContentWidth = %d, want 0", got.ContentWidth)
	}
	if !reflect.DeepEqual(got.Normalize(), got) {
		t.Error("Normalize is not idempotent")
	}
	if post.Tags[0] != " a " {
		t.Error("Normalize must not modify the receiver's slices")
	}
}

func TestPostContext_NormalizeExcludeWins(t *testing.T) {
	post := PostContext{
		PostID:               1,
		IncludedProductSlugs: []string{"apple/iphone", "sony/a7"},
		ExcludedProductSlugs: []string{" apple/iphone", "apple/iphone"},
	}

	got := post.Normalize()

	if !reflect.DeepEqual(got.IncludedProductSlugs, []string{"sony/a7"}) {
		t.Errorf("IncludedProductSlugs = %v, want [sony/a7]", got.IncludedProductSlugs)
	}
	if !reflect.DeepEqual(got.ExcludedProductSlugs, []string{"apple/iphone"}) {
		t.Errorf("ExcludedProductSlugs = %v, want [apple/iphone]", got.ExcludedProductSlugs)
	}

	post.IncludedProductSlugs = []string{"apple/iphone"}
	post.Tags = nil
	if post.Normalize().HasInput() {
		t.Error("a post whose only include is excluded has nothing to match")
	}
}

func TestDisplayConfig_Normalize(t *testing.T) {
	cfg := DisplayConfig{MaxProducts: 0, StopTags: []string{" Apple ", "apple", "HTC"}, MinContentWidth: -1}
	got := cfg.Normalize()

	if got.MaxProducts != 10 {
		t.Errorf("MaxProducts = %d, want 10", got.MaxProducts)
	}
	if !reflect.DeepEqual(got.StopTags, []string{"apple", "htc"}) {
		t.Errorf("StopTags = %v", got.StopTags)
	}
	if got.MinContentWidth != 0 {
		t.Errorf("MinContentWidth = %d", got.MinContentWidth)
	}
}

func TestEligibility(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.StopTags = []string{"sponsored"}
	cfg = cfg.Normalize()

	tests := []struct {
		name string
		post PostContext
		cfg  DisplayConfig
		want SkipReason
	}{
		{"eligible", PostContext{Tags: []string{"drone"}, ContentWidth: 700}, cfg, SkipNone},
		{"unknown width is eligible", PostContext{Tags: []string{"drone"}}, cfg, SkipNone},
		{"disabled", PostContext{Disabled: true}, cfg, SkipDisabled},
		{"stop tag any case", PostContext{Tags: []string{"Sponsored"}}, cfg, SkipStopTag},
		{"narrow", PostContext{ContentWidth: 549}, cfg, SkipNarrowTheme},
		{"min width inclusive", PostContext{ContentWidth: 550}, cfg, SkipNone},
		{"feed off", PostContext{IsFeed: true}, cfg, SkipFeed},
		{"feed ignores width", PostContext{IsFeed: true, ContentWidth: 300}, func() DisplayConfig {
			c := cfg
			c.FeedIncludeEnabled = true
			return c
		}(), SkipNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligibility(tt.post, tt.cfg); got != tt.want {
				t.Errorf("Eligibility() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayConfig_KeyConfig(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.BlogID = 3
	cfg.ExpandAllProducts = true

	kc := cfg.KeyConfig()
	if kc.BlogID != 3 || !kc.ExpandAll || !kc.SchemaOrg || kc.MaxProducts != 10 || kc.Tabs != cfg.Tabs {
		t.Errorf("KeyConfig() = %+v", kc)
	}
}
