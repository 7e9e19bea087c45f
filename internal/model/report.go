package model

import (
	"path/filepath"
	"time"
)

// AuditReport accumulates everything an audit run observes.
// A report is owned by a single run: each step receives it, appends its
// records and hands it to the next step.
type AuditReport struct {
	// Site is the base URL of the audited website.
	Site string `json:"site"`

	// DateAudited is when the run started.
	DateAudited time.Time `json:"date_audited"`

	// Visits holds one record per navigation, in visit order, for all
	// viewport passes.
	Visits []PageVisit `json:"pages"`

	// Pages holds the detailed desktop data per page label, in visit order.
	Pages []*PageAudit `json:"page_audits"`

	// Links are all anchors observed during the desktop pass.
	Links []Link `json:"links,omitempty"`

	// BrokenLinks are links that failed the liveness check.
	BrokenLinks []BrokenLink `json:"broken_links"`

	// CardsFound are the card candidates matched on the homepage.
	CardsFound []CardCandidate `json:"era_cards_found,omitempty"`

	// CardInteractions are the outcomes of clicking the candidates.
	CardInteractions []CardInteraction `json:"era_cards"`

	// AuthProbe is the auth-page probe record, nil when it did not run.
	AuthProbe *AuthProbe `json:"auth_test,omitempty"`

	// Recommendations is filled when the report is finalized.
	Recommendations []Recommendation `json:"recommendations,omitempty"`

	// Steps records the pipeline steps that ran, in order.
	Steps []StepRecord `json:"steps,omitempty"`

	// TimedOut is set when the run was cancelled before all steps ran.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error is the message of the last failing step, if any.
	Error string `json:"error,omitempty"`
}

// StepRecord is the outcome of one pipeline step.
type StepRecord struct {
	Name    string  `json:"name"`
	Seconds float64 `json:"seconds"`
	Error   string  `json:"error,omitempty"`
}

// StepNames returns the names of the steps that ran.
func (r *AuditReport) StepNames() []string {
	names := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		names[i] = s.Name
	}
	return names
}

// NewAuditReport creates an empty report for the given site.
func NewAuditReport(site string) *AuditReport {
	return &AuditReport{
		Site:             site,
		DateAudited:      time.Now().UTC(),
		Visits:           make([]PageVisit, 0),
		Pages:            make([]*PageAudit, 0),
		BrokenLinks:      make([]BrokenLink, 0),
		CardInteractions: make([]CardInteraction, 0),
	}
}

// AddVisit appends a navigation record.
func (r *AuditReport) AddVisit(v PageVisit) {
	r.Visits = append(r.Visits, v)
}

// AddPageAudit appends the detailed record of a page. A later record
// for the same label replaces the earlier one.
func (r *AuditReport) AddPageAudit(p *PageAudit) {
	for i, existing := range r.Pages {
		if existing.Label == p.Label {
			r.Pages[i] = p
			return
		}
	}
	r.Pages = append(r.Pages, p)
}

// Page returns the detailed record of the given label, or nil.
func (r *AuditReport) Page(label string) *PageAudit {
	for _, p := range r.Pages {
		if p.Label == label {
			return p
		}
	}
	return nil
}

// Visit returns the navigation record with the given key.
func (r *AuditReport) Visit(key string) (PageVisit, bool) {
	for _, v := range r.Visits {
		if v.Key == key {
			return v, true
		}
	}
	return PageVisit{}, false
}

// AddLinks appends discovered anchors.
func (r *AuditReport) AddLinks(links []Link) {
	r.Links = append(r.Links, links...)
}

// VisitsFor returns the navigation records of one viewport pass.
func (r *AuditReport) VisitsFor(viewport string) []PageVisit {
	visits := make([]PageVisit, 0)
	for _, v := range r.Visits {
		if v.Viewport == viewport {
			visits = append(visits, v)
		}
	}
	return visits
}

// HasConsoleProblems reports whether any page logged an error or warning.
func (r *AuditReport) HasConsoleProblems() bool {
	for _, p := range r.Pages {
		if len(p.Console) > 0 {
			return true
		}
	}
	return false
}

// Screenshot is an entry of the screenshot index.
type Screenshot struct {
	// File is the base name of the PNG file.
	File string `json:"file"`

	// Subject describes what the screenshot shows (a visit key or probe).
	Subject string `json:"subject"`
}

// Screenshots lists every screenshot taken during the run, page visits
// first, then card clicks, then the auth probe.
func (r *AuditReport) Screenshots() []Screenshot {
	shots := make([]Screenshot, 0)
	for _, v := range r.Visits {
		if v.Screenshot != "" {
			shots = append(shots, Screenshot{File: filepath.Base(v.Screenshot), Subject: v.Key})
		}
	}
	for _, c := range r.CardInteractions {
		if c.Screenshot != "" {
			shots = append(shots, Screenshot{File: filepath.Base(c.Screenshot), Subject: "card click"})
		}
	}
	if r.AuthProbe != nil {
		for _, s := range r.AuthProbe.Screenshots {
			shots = append(shots, Screenshot{File: filepath.Base(s), Subject: "auth probe"})
		}
	}
	return shots
}

// Finalize computes the derived fields of the report.
func (r *AuditReport) Finalize() {
	r.Recommendations = BuildRecommendations(r)
}
