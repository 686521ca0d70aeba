package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// Namespace prefixes every databox key.
	Namespace = "dbx"

	// KeyVersion is bumped whenever rendered markup changes shape so old
	// entries are never served by a newer renderer.
	KeyVersion = "v2"

	// DefaultMaxKeyLength is the host's option-name ceiling.
	DefaultMaxKeyLength = 45

	// MiniWidthThreshold is the content width (pixels) below which the mini
	// databox is rendered.
	MiniWidthThreshold = 650

	// LastKnownGoodSuffix marks the long-lived fallback copy of a render.
	LastKnownGoodSuffix = "-lkg"

	// MinKeyLength is the longest digest key; smaller ceilings cannot be honored.
	MinKeyLength = 22

	maxProductsLimit = 10
	keySeparator     = "-"
)

// Tabs lists which optional product tabs are shown. Different tab sets
// render different HTML, so they are part of the key.
type Tabs struct {
	Specs       bool `json:"specs" koanf:"specs"`
	Reviews     bool `json:"reviews" koanf:"reviews"`
	Prices      bool `json:"prices" koanf:"prices"`
	Answers     bool `json:"answers" koanf:"answers"`
	Discussions bool `json:"discussions" koanf:"discussions"`
}

// AllTabs returns a Tabs value with every tab enabled.
func AllTabs() Tabs {
	return Tabs{Specs: true, Reviews: true, Prices: true, Answers: true, Discussions: true}
}

// Code returns the short key segment for the enabled tabs in fixed order
// (s r p a d), or "0" when no tab is enabled.
func (t Tabs) Code() string {
	var b strings.Builder
	if t.Specs {
		b.WriteByte('s')
	}
	if t.Reviews {
		b.WriteByte('r')
	}
	if t.Prices {
		b.WriteByte('p')
	}
	if t.Answers {
		b.WriteByte('a')
	}
	if t.Discussions {
		b.WriteByte('d')
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

// KeyConfig is the part of the site display configuration that changes the
// rendered databox.
type KeyConfig struct {
	// BlogID identifies the site in a multisite host (0 = single site)
	BlogID int64

	// MaxProducts is clamped to 1..10; anything outside falls back to 10
	MaxProducts int

	Tabs      Tabs
	ExpandAll bool
	SchemaOrg bool
}

// KeyContext carries the per-request rendering context.
type KeyContext struct {
	IsFeed       bool
	ContentWidth int
}

// IsMini reports whether the mini databox variant is rendered. Feeds always
// use the feed variant regardless of theme width.
func (c KeyContext) IsMini() bool {
	return !c.IsFeed && c.ContentWidth > 0 && c.ContentWidth < MiniWidthThreshold
}

// KeyBuilder derives deterministic, length-bounded cache keys.
type KeyBuilder struct {
	// MaxLength is the longest key the backing store accepts
	MaxLength int
}

// NewKeyBuilder returns a KeyBuilder bounded by maxLength. Values below
// MinKeyLength fall back to DefaultMaxKeyLength.
func NewKeyBuilder(maxLength int) KeyBuilder {
	if maxLength < MinKeyLength {
		maxLength = DefaultMaxKeyLength
	}
	return KeyBuilder{MaxLength: maxLength}
}

// Build generates the primary cache key for a post.
// Format: dbx-v2[-s<blog>]-p<post>[-m]-n<max>-<tabs>[-e][-ns][-f]
//
// Example:
//
//	dbx-v2-p42-n3-srpad
//
// Keys longer than MaxLength are replaced by a digest of the full key so
// every input still maps to a distinct, bounded key.
func (b KeyBuilder) Build(postID int64, cfg KeyConfig, kc KeyContext) string {
	parts := []string{Namespace, KeyVersion}

	if cfg.BlogID > 0 {
		parts = append(parts, fmt.Sprintf("s%d", cfg.BlogID))
	}

	parts = append(parts, fmt.Sprintf("p%d", postID))

	// separate cache for full vs. mini box
	if kc.IsMini() {
		parts = append(parts, "m")
	}

	parts = append(parts, fmt.Sprintf("n%d", clampMaxProducts(cfg.MaxProducts)))
	parts = append(parts, cfg.Tabs.Code())

	if cfg.ExpandAll {
		parts = append(parts, "e")
	}
	if !cfg.SchemaOrg {
		parts = append(parts, "ns")
	}
	if kc.IsFeed {
		parts = append(parts, "f")
	}

	key := strings.Join(parts, keySeparator)
	if len(key) > b.maxLength() {
		return digestKey("h", key)
	}
	return key
}

// LastKnownGood returns the key holding the fallback copy of primary.
func (b KeyBuilder) LastKnownGood(primary string) string {
	return b.Derive(primary, LastKnownGoodSuffix, "g")
}

// Derive appends suffix to primary. When the result would exceed MaxLength
// the digest form tagged with digestTag is returned instead. Segments are
// never truncated: dropping one would merge partitions (feed and page, for
// instance) and serve the wrong markup.
func (b KeyBuilder) Derive(primary, suffix, digestTag string) string {
	key := primary + suffix
	if len(key) > b.maxLength() {
		return digestKey(digestTag, primary)
	}
	return key
}

func (b KeyBuilder) maxLength() int {
	if b.MaxLength < MinKeyLength {
		return DefaultMaxKeyLength
	}
	return b.MaxLength
}

// digestKey is at most 21 characters: "dbx-v2-" + tag + 13 base36 digits.
func digestKey(tag, key string) string {
	sum := xxhash.Sum64String(key)
	return Namespace + keySeparator + KeyVersion + keySeparator + tag + strconv.FormatUint(sum, 36)
}

func clampMaxProducts(n int) int {
	if n < 1 || n > maxProductsLimit {
		return maxProductsLimit
	}
	return n
}
