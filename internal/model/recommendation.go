package model

import (
	"fmt"
	"strconv"
)

// SlowLoadThreshold is the load time in seconds above which a page gets
// an optimization recommendation.
const SlowLoadThreshold = 3.0

// RecommendationKind identifies the threshold check that produced a
// recommendation.
type RecommendationKind string

// Recommendation kinds, in the order they are evaluated per page.
const (
	KindMissingMetaDescription RecommendationKind = "missing_meta_description"
	KindMissingOGImage         RecommendationKind = "missing_og_image"
	KindMissingOGTitle         RecommendationKind = "missing_og_title"
	KindMissingAltText         RecommendationKind = "missing_alt_text"
	KindBrokenImages           RecommendationKind = "broken_images"
	KindUnlabeledInputs        RecommendationKind = "unlabeled_inputs"
	KindBrokenLinks            RecommendationKind = "broken_links"
	KindSlowLoad               RecommendationKind = "slow_load"
)

// Recommendation is one entry of the flat recommendation list.
type Recommendation struct {
	Kind RecommendationKind `json:"kind"`

	// Page is the label of the page concerned. Empty for site-wide items.
	Page string `json:"page,omitempty"`

	// Count is the number of offending items, when it applies.
	Count int `json:"count,omitempty"`

	// LoadTime is the measured load time for KindSlowLoad.
	LoadTime float64 `json:"load_time,omitempty"`
}

// Format renders the recommendation as a sentence. emphasize is applied
// to the page label, e.g. to make it bold in Markdown; nil leaves it as is.
func (r Recommendation) Format(emphasize func(string) string) string {
	page := r.Page
	if emphasize != nil && page != "" {
		page = emphasize(page)
	}

	switch r.Kind {
	case KindMissingMetaDescription:
		return "Add meta description to " + page
	case KindMissingOGImage:
		return "Add og:image to " + page
	case KindMissingOGTitle:
		return "Add og:title to " + page
	case KindMissingAltText:
		return fmt.Sprintf("Add alt text to %d images on %s", r.Count, page)
	case KindBrokenImages:
		return fmt.Sprintf("Fix %d broken images on %s", r.Count, page)
	case KindUnlabeledInputs:
		return fmt.Sprintf("Add labels to %d form inputs on %s", r.Count, page)
	case KindBrokenLinks:
		return fmt.Sprintf("Fix %d broken links", r.Count)
	case KindSlowLoad:
		return fmt.Sprintf("Optimize load time for %s (%ss)", page,
			strconv.FormatFloat(r.LoadTime, 'f', -1, 64))
	default:
		return string(r.Kind)
	}
}

// String implements fmt.Stringer.
func (r Recommendation) String() string {
	return r.Format(nil)
}

// BuildRecommendations runs the fixed threshold checks over the report.
// SEO gaps come first, then accessibility, then broken links, then
// performance, matching the order of the report sections.
func BuildRecommendations(r *AuditReport) []Recommendation {
	recs := make([]Recommendation, 0)

	for _, p := range r.Pages {
		if p.SEO.MetaDescription == "" {
			recs = append(recs, Recommendation{Kind: KindMissingMetaDescription, Page: p.Label})
		}
		if p.SEO.OGImage == "" {
			recs = append(recs, Recommendation{Kind: KindMissingOGImage, Page: p.Label})
		}
		if p.SEO.OGTitle == "" {
			recs = append(recs, Recommendation{Kind: KindMissingOGTitle, Page: p.Label})
		}
	}

	for _, p := range r.Pages {
		a11y := p.Accessibility
		if n := len(a11y.MissingAlt); n > 0 {
			recs = append(recs, Recommendation{Kind: KindMissingAltText, Page: p.Label, Count: n})
		}
		if n := len(a11y.BrokenImages); n > 0 {
			recs = append(recs, Recommendation{Kind: KindBrokenImages, Page: p.Label, Count: n})
		}
		if n := len(a11y.FormIssues); n > 0 {
			recs = append(recs, Recommendation{Kind: KindUnlabeledInputs, Page: p.Label, Count: n})
		}
	}

	if n := len(r.BrokenLinks); n > 0 {
		recs = append(recs, Recommendation{Kind: KindBrokenLinks, Count: n})
	}

	for _, p := range r.Pages {
		if p.LoadTime > SlowLoadThreshold {
			recs = append(recs, Recommendation{Kind: KindSlowLoad, Page: p.Label, LoadTime: p.LoadTime})
		}
	}

	return recs
}
