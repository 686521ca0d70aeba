package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
)

// ErrEmptyQuery is returned when a search has no tags or keyword.
var ErrEmptyQuery = errors.New("no search query provided")

type searchInstance struct {
	Slug     string `json:"product_slug"`
	FullName string `json:"product_fullname"`
	Name     string `json:"instance_name"`
}

type searchResult struct {
	Slug      string           `json:"product_slug"`
	FullName  string           `json:"product_fullname"`
	Instances []searchInstance `json:"instances"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// SearchByTags finds products matching any of the given post tags.
func (c *Client) SearchByTags(ctx context.Context, tags []string) ([]ProductRecord, error) {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyQuery
	}
	return c.search(ctx, map[string]any{"tags": cleaned}, false)
}

// SearchByKeyword runs a free-form product search. Instances other than the
// base product are listed after their parent with Parent set, so the editor
// can pick a specific configuration.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string) ([]ProductRecord, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyQuery
	}
	return c.search(ctx, map[string]any{"keyword": keyword}, true)
}

func (c *Client) search(ctx context.Context, params map[string]any, expandInstances bool) ([]ProductRecord, error) {
	params["api_key"] = c.config.APIKey

	body, status, err := c.post(ctx, SearchPath, params, false)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		apiErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK {
		return nil, c.statusError(SearchPath, status)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrNoResults
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, c.invalid(SearchPath, "decode body", err)
	}

	products := make([]ProductRecord, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		p := ProductRecord{
			Slug: strings.TrimSpace(r.Slug),
			Name: strings.TrimSpace(r.FullName),
		}
		if p.Slug == "" || p.Name == "" {
			continue
		}

		var names []string
		var children []ProductRecord
		for _, inst := range r.Instances {
			name := strings.TrimSpace(inst.Name)
			if name == "" {
				continue
			}
			names = append(names, name)

			slug := strings.TrimSpace(inst.Slug)
			if expandInstances && slug != "" && slug != p.Slug && strings.TrimSpace(inst.FullName) != "" {
				children = append(children, ProductRecord{
					Slug:      slug,
					Name:      strings.TrimSpace(inst.FullName),
					Instances: name,
					Parent:    p.Slug,
				})
			}
		}
		if len(names) > 0 {
			sort.Strings(names)
			p.Instances = strings.Join(names, ",")
		}

		products = append(products, p)

		sort.SliceStable(children, func(i, j int) bool {
			return children[i].Instances < children[j].Instances
		})
		products = append(products, children...)
	}

	if len(products) == 0 {
		return nil, ErrNoResults
	}

	c.logger.Debug().Int("products", len(products)).Msg("Product search response")
	return products, nil
}
