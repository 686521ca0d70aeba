package client

import (
	"fmt"
	"strings"
)

// ProductRecord is one product returned by the product API.
type ProductRecord struct {
	// Slug identifies the product as company/product
	Slug string `json:"slug"`

	// Name is the display name
	Name string `json:"name"`

	// Instances is a comma list of configuration names (e.g. "16GB,32GB")
	Instances string `json:"instances,omitempty"`

	// Parent is the parent product slug when this record is an instance
	Parent string `json:"parent,omitempty"`

	URL         string `json:"url,omitempty"`
	Company     string `json:"company,omitempty"`
	CompanyURL  string `json:"company_url,omitempty"`
	Image       string `json:"image,omitempty"`
	LowestPrice *Price `json:"lowest_price,omitempty"`
}

// Price is the lowest known offer for a product.
type Price struct {
	Amount     int    `json:"amount"`
	Currency   string `json:"currency"`
	OnContract bool   `json:"is_on_contract,omitempty"`
}

// IsValidSlug reports whether slug looks like company/product.
func IsValidSlug(slug string) bool {
	if slug == "" || strings.ContainsAny(slug, " \t\r\n") {
		return false
	}
	i := strings.Index(slug, "/")
	return i > 0 && i < len(slug)-1
}

// Validate checks the fields every record must carry.
func (p ProductRecord) Validate() error {
	if !IsValidSlug(p.Slug) {
		return fmt.Errorf("invalid product slug %q", p.Slug)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %q has no name", p.Slug)
	}
	if p.Parent != "" && !IsValidSlug(p.Parent) {
		return fmt.Errorf("product %q has invalid parent slug %q", p.Slug, p.Parent)
	}
	return nil
}

// CleanProducts drops invalid records and duplicates. Instances are compared
// by their parent slug so a product and one of its instances are not both
// kept. Instances are dropped entirely unless allowInstances is set.
func CleanProducts(products []ProductRecord, allowInstances bool) []ProductRecord {
	seen := make(map[string]struct{}, len(products))
	cleaned := make([]ProductRecord, 0, len(products))

	for _, p := range products {
		p.Slug = strings.TrimSpace(p.Slug)
		p.Name = strings.TrimSpace(p.Name)
		p.Parent = strings.TrimSpace(p.Parent)
		p.Instances = strings.TrimSpace(p.Instances)

		if p.Validate() != nil {
			continue
		}
		if p.Parent != "" && !allowInstances {
			continue
		}

		identity := p.Slug
		if p.Parent != "" {
			identity = p.Parent
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		cleaned = append(cleaned, p)
	}
	return cleaned
}
