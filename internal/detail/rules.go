package detail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// page bundles the parsed document with the raw markup so rules can choose
// between structured selection and pattern scanning.
type page struct {
	doc *goquery.Document
	raw string
}

// rule is one named extraction strategy for a single field. Scalar fields
// use the first returned value; list fields accumulate all of them. An
// empty result means the rule failed and the next one in the table runs.
type rule struct {
	name    string
	extract func(p page) []string
}

var (
	fourDigitYear    = regexp.MustCompile(`^\d{4}$`)
	parenYearPattern = regexp.MustCompile(`\((\d{4})\)`)
	bareYearPattern  = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	decimalPattern   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	ratingNearLabel  = regexp.MustCompile(`评分[^0-9]{0,40}?(\d+(?:\.\d+)?)`)
	spanTextPattern  = regexp.MustCompile(`<span[^>]*>([^<]+)</span>`)
	anchorPattern    = regexp.MustCompile(`<a[^>]*>([^<]+)</a>`)
	paragraphPattern = regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
)

// Rule tables, one per field, tried strictly in declared order. The order
// is a correctness contract pinned by tests.
var (
	titleRules = []rule{
		{"schema-itemreviewed", selectorText(`[property="v:itemreviewed"]`)},
		{"heading-span", selectorText("h1 span")},
		{"page-title", func(p page) []string {
			t := p.doc.Find("title").First().Text()
			return nonEmpty(stripBranding(t))
		}},
		{"bare-heading", selectorText("h1")},
	}

	yearRules = []rule{
		{"schema-release-date", func(p page) []string {
			node := p.doc.Find(`[property="v:initialReleaseDate"]`).First()
			v, ok := node.Attr("content")
			if !ok || v == "" {
				v = node.Text()
			}
			if m := bareYearPattern.FindString(v); m != "" {
				return []string{m}
			}
			return nil
		}},
		{"parenthesized-year", func(p page) []string {
			if t := p.doc.Find("span.year").First().Text(); t != "" {
				if m := parenYearPattern.FindStringSubmatch(t); m != nil {
					return []string{m[1]}
				}
			}
			return nil
		}},
		{"generic-token", func(p page) []string {
			// A parenthesized token anywhere in the markup is a stronger
			// signal than a bare one.
			if m := parenYearPattern.FindStringSubmatch(p.raw); m != nil {
				return []string{m[1]}
			}
			return nonEmpty(bareYearPattern.FindString(p.raw))
		}},
	}

	ratingRules = []rule{
		{"schema-average", selectorText(`strong[property="v:average"]`)},
		{"rating-block", selectorText(".rating_num")},
		{"label-decimal", func(p page) []string {
			if m := ratingNearLabel.FindStringSubmatch(p.raw); m != nil {
				return []string{m[1]}
			}
			return nil
		}},
	}

	genreRules = []rule{
		{"schema-genre", selectorAll(`span[property="v:genre"]`)},
		{"label-spans", labeledSegment("类型", spanTextPattern)},
	}

	castRules = []rule{
		{"schema-starring", selectorAll(`a[rel="v:starring"]`)},
		{"label-anchors", labeledSegment("主演", anchorPattern)},
	}

	posterRules = []rule{
		{"mainpic", selectorAttr("#mainpic img", "src")},
		{"nbg-image", selectorAttr("a.nbg img, .nbgnbg img", "src")},
		{"og-image", selectorAttr(`meta[property="og:image"]`, "content")},
	}

	summaryRules = []rule{
		{"schema-summary", selectorText(`span[property="v:summary"]`)},
		{"link-report", func(p page) []string {
			// The hidden "all" span holds the untruncated synopsis; the
			// visible sibling is the collapsed version.
			if t := p.doc.Find("#link-report span.all").First().Text(); strings.TrimSpace(t) != "" {
				return []string{t}
			}
			return nonEmpty(p.doc.Find("#link-report span").First().Text())
		}},
		{"synopsis-paragraph", func(p page) []string {
			idx := strings.Index(p.raw, "剧情简介")
			if idx < 0 {
				return nil
			}
			if m := paragraphPattern.FindStringSubmatch(p.raw[idx:]); m != nil {
				return nonEmpty(stripTags(m[1]))
			}
			return nil
		}},
	}
)

func selectorText(selector string) func(page) []string {
	return func(p page) []string {
		return nonEmpty(p.doc.Find(selector).First().Text())
	}
}

func selectorAll(selector string) func(page) []string {
	return func(p page) []string {
		var out []string
		p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		return out
	}
}

func selectorAttr(selector, attr string) func(page) []string {
	return func(p page) []string {
		v, _ := p.doc.Find(selector).First().Attr(attr)
		return nonEmpty(v)
	}
}

// labeledSegment scans the raw markup after a field label up to the next
// line break tag and applies pattern globally within that segment.
func labeledSegment(label string, pattern *regexp.Regexp) func(page) []string {
	return func(p page) []string {
		idx := strings.Index(p.raw, label)
		if idx < 0 {
			return nil
		}
		segment := p.raw[idx:]
		if end := strings.Index(segment, "<br"); end > 0 {
			segment = segment[:end]
		}
		var out []string
		for _, m := range pattern.FindAllStringSubmatch(segment, -1) {
			if t := strings.TrimSpace(m[1]); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}

// stripBranding removes site-branding suffixes from a page title.
func stripBranding(title string) string {
	for _, sep := range []string{"(豆瓣)", "- 豆瓣电影", "_豆瓣", "豆瓣"} {
		if idx := strings.Index(title, sep); idx >= 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}
