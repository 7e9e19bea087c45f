package inspect

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/uxaudit/internal/model"
)

// Selectors shared by the page engines and the auth probe.
const (
	// FormControlSelector matches the controls checked for a label.
	FormControlSelector = "input, select, textarea"

	// HeadingSelector matches the heading outline.
	HeadingSelector = "h1, h2, h3, h4, h5, h6"

	// AuthButtonSelector matches the button-like elements of an auth page.
	AuthButtonSelector = `button, [role="button"], a[class*="sign"], a[class*="auth"], a[class*="login"]`

	// EmailInputSelector matches the email-like input of an auth page.
	EmailInputSelector = `input[type="email"], input[name="email"], input[placeholder*="email" i]`

	// PasswordInputSelector matches the password input of an auth page.
	PasswordInputSelector = `input[type="password"]`

	// NavLinkSelector matches the navigation links used by the smoke test.
	NavLinkSelector = "nav a[href]"
)

// Document is a parsed HTML page. All URLs it returns are resolved against
// the page URL.
type Document struct {
	doc     *goquery.Document
	baseURL *url.URL
}

// Parse parses HTML content fetched from pageURL.
// x/net/html tolerates the malformed markup common on the web, so a parse
// error means the reader itself failed.
func Parse(pageURL string, content io.Reader) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	root, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return &Document{
		doc:     goquery.NewDocumentFromNode(root),
		baseURL: base,
	}, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(pageURL, content string) (*Document, error) {
	return Parse(pageURL, strings.NewReader(content))
}

// Selection gives direct access to the underlying goquery document.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// SEO returns the search-engine metadata of the page.
func (d *Document) SEO() model.SEO {
	seo := model.SEO{
		Title:           d.Title(),
		MetaDescription: d.attr(`meta[name="description"]`, "content"),
		OGImage:         d.attr(`meta[property="og:image"]`, "content"),
		OGTitle:         d.attr(`meta[property="og:title"]`, "content"),
	}
	if href := d.attr(`link[rel="canonical"]`, "href"); href != "" {
		seo.Canonical = d.Resolve(href)
	}
	return seo
}

// Images returns every <img> element in document order. Only the
// attribute facts are set; load state comes from the page engine.
func (d *Document) Images() []model.Image {
	images := make([]model.Image, 0)
	d.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Attr("alt")
		src, _ := s.Attr("src")
		images = append(images, model.Image{
			Src:    d.Resolve(src),
			Alt:    alt,
			HasAlt: hasAlt,
		})
	})
	return images
}

// MissingAlt returns the images that have no alt attribute at all.
// An empty alt marks a decorative image and is accepted.
func (d *Document) MissingAlt() []model.Image {
	missing := make([]model.Image, 0)
	for _, img := range d.Images() {
		if !img.HasAlt {
			missing = append(missing, img)
		}
	}
	return missing
}

// FormIssues returns the form controls that have neither a label[for]
// pointing at their id, nor an aria-label, nor a placeholder.
func (d *Document) FormIssues() []model.FormControl {
	labelled := make(map[string]struct{})
	d.doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		if id, _ := s.Attr("for"); id != "" {
			labelled[id] = struct{}{}
		}
	})

	issues := make([]model.FormControl, 0)
	d.doc.Find(FormControlSelector).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if _, ok := labelled[id]; ok && id != "" {
			return
		}
		if v, _ := s.Attr("aria-label"); v != "" {
			return
		}
		if v, _ := s.Attr("placeholder"); v != "" {
			return
		}
		name, _ := s.Attr("name")
		issues = append(issues, model.FormControl{
			Tag:  strings.ToUpper(goquery.NodeName(s)),
			Type: controlType(s),
			ID:   id,
			Name: name,
		})
	})
	return issues
}

// Links returns every anchor with an href, resolved, with its visible text
// trimmed and truncated to model.MaxLinkTextLen.
func (d *Document) Links() []model.Link {
	links := make([]model.Link, 0)
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, model.Link{
			Href: d.Resolve(href),
			Text: model.Truncate(strings.TrimSpace(s.Text()), model.MaxLinkTextLen),
		})
	})
	return links
}

// NavLinks returns the anchors inside <nav> elements. Hrefs are returned
// as written in the markup and the trimmed text is kept whole.
func (d *Document) NavLinks() []model.Link {
	nav := make([]model.Link, 0)
	d.doc.Find(NavLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		nav = append(nav, model.Link{Href: href, Text: strings.TrimSpace(s.Text())})
	})
	return nav
}

// Headings returns the h1-h6 outline with text truncated to
// model.MaxHeadingTextLen.
func (d *Document) Headings() []model.Heading {
	headings := make([]model.Heading, 0)
	d.doc.Find(HeadingSelector).Each(func(_ int, s *goquery.Selection) {
		headings = append(headings, model.Heading{
			Tag:  strings.ToUpper(goquery.NodeName(s)),
			Text: model.Truncate(strings.TrimSpace(s.Text()), model.MaxHeadingTextLen),
		})
	})
	return headings
}

// AuthInputs returns every <input> of the page with a visibility estimate.
// Without layout information an input counts as hidden when it is of type
// hidden, or when it or an ancestor carries the hidden attribute or an
// inline display:none.
func (d *Document) AuthInputs() []model.AuthInput {
	inputs := make([]model.AuthInput, 0)
	d.doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		id, _ := s.Attr("id")
		placeholder, _ := s.Attr("placeholder")
		inputs = append(inputs, model.AuthInput{
			Type:        controlType(s),
			Name:        name,
			ID:          id,
			Placeholder: placeholder,
			Visible:     visible(s),
		})
	})
	return inputs
}

// AuthButtons returns the button-like elements matched by AuthButtonSelector.
func (d *Document) AuthButtons() []model.AuthButton {
	buttons := make([]model.AuthButton, 0)
	d.doc.Find(AuthButtonSelector).Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		typ, _ := s.Attr("type")
		if typ == "" && goquery.NodeName(s) == "button" {
			typ = "submit"
		}
		buttons = append(buttons, model.AuthButton{
			Tag:   strings.ToUpper(goquery.NodeName(s)),
			Text:  model.Truncate(strings.TrimSpace(s.Text()), model.MaxLinkTextLen),
			Class: class,
			Type:  typ,
		})
	})
	return buttons
}

// EmailInput returns the first email-like input: type email, name email,
// or a placeholder mentioning "email" in any case.
func (d *Document) EmailInput() *goquery.Selection {
	return d.doc.Find("input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		name, _ := s.Attr("name")
		placeholder, _ := s.Attr("placeholder")
		return strings.EqualFold(typ, "email") || name == "email" ||
			strings.Contains(strings.ToLower(placeholder), "email")
	}).First()
}

// Query returns the first element matching selector. EmailInputSelector
// contains a case-insensitive attribute match and is answered by EmailInput.
func (d *Document) Query(selector string) *goquery.Selection {
	if selector == EmailInputSelector {
		return d.EmailInput()
	}
	return d.doc.Find(selector).First()
}

// PasswordInput returns the first password input.
func (d *Document) PasswordInput() *goquery.Selection {
	return d.doc.Find(PasswordInputSelector).First()
}

// Count returns the number of elements matching selector. An invalid
// selector matches nothing.
func (d *Document) Count(selector string) int {
	return d.doc.Find(selector).Length()
}

// CountText returns the number of innermost elements of <body> whose text
// contains text, ignoring case. An element containing a matching child is
// not counted itself.
func (d *Document) CountText(text string) int {
	needle := strings.ToLower(text)
	count := 0
	d.doc.Find("body *").Not("script, style, noscript, template").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(strings.ToLower(s.Text()), needle) {
			return
		}
		childMatch := false
		s.Children().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(c.Text()), needle) {
				childMatch = true
				return false
			}
			return true
		})
		if !childMatch {
			count++
		}
	})
	return count
}

// CardCandidates returns the elements matching selector in document order.
// Sizes are unknown without layout and stay 0.
func (d *Document) CardCandidates(selector string) []model.CardCandidate {
	cards := make([]model.CardCandidate, 0)
	d.doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		cards = append(cards, model.CardCandidate{
			Index: i,
			Tag:   strings.ToUpper(goquery.NodeName(s)),
			Class: class,
			Text:  model.Truncate(strings.TrimSpace(s.Text()), model.MaxCardTextLen),
		})
	})
	return cards
}

// Resolve resolves href against the page URL. Hrefs that do not parse are
// returned trimmed but unchanged.
func (d *Document) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.baseURL.ResolveReference(u).String()
}

func (d *Document) attr(selector, name string) string {
	v, _ := d.doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

// controlType mirrors the DOM "type" property: inputs default to "text",
// selects and textareas report their own kind.
func controlType(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "select":
		if _, multiple := s.Attr("multiple"); multiple {
			return "select-multiple"
		}
		return "select-one"
	case "textarea":
		return "textarea"
	}
	typ, _ := s.Attr("type")
	if typ == "" {
		return "text"
	}
	return strings.ToLower(typ)
}

func visible(s *goquery.Selection) bool {
	if typ, _ := s.Attr("type"); strings.EqualFold(typ, "hidden") {
		return false
	}
	for n := s; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		style, _ := n.Attr("style")
		compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(compact, "display:none") {
			return false
		}
	}
	return true
}
