// Package detail extracts a structured movie record from a catalog detail
// page. Each field is resolved through an ordered table of extraction rules
// that degrade gracefully when the page markup varies.
package detail

import (
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/filmatlas/moviemeta/internal/catalog"
	"github.com/filmatlas/moviemeta/internal/metrics"
)

// Summary length bounds applied after cleaning.
const (
	DefaultSummaryMaxLen = 500
	DefaultSummaryMinLen = 10
)

// Parser turns detail-page markup into a Record.
type Parser struct {
	baseOrigin    string
	summaryMaxLen int
	summaryMinLen int
	logger        *zap.Logger
}

// NewParser builds a Parser. baseOrigin anchors relative poster URLs.
// Zero length bounds fall back to the defaults.
func NewParser(baseOrigin string, summaryMaxLen, summaryMinLen int, logger *zap.Logger) *Parser {
	if summaryMaxLen <= 0 {
		summaryMaxLen = DefaultSummaryMaxLen
	}
	if summaryMinLen <= 0 {
		summaryMinLen = DefaultSummaryMinLen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		baseOrigin:    strings.TrimRight(baseOrigin, "/"),
		summaryMaxLen: summaryMaxLen,
		summaryMinLen: summaryMinLen,
		logger:        logger,
	}
}

// Parse extracts all seven fields from the page. Every field is independent:
// a failed field takes its sentinel value, except the mandatory title whose
// absence fails the whole record.
func (p *Parser) Parse(rawHTML string) (catalog.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return catalog.Record{}, catalog.NewError(catalog.KindParse, "parse detail", err)
	}
	pg := page{doc: doc, raw: rawHTML}

	title := p.scalarField(pg, "title", titleRules, nil)
	if title == "" {
		return catalog.Record{}, catalog.NewError(catalog.KindParse, "parse detail",
			errors.New("title not extractable by any rule"))
	}

	rec := catalog.Record{
		Title:   cleanText(title),
		Year:    orSentinel(p.scalarField(pg, "year", yearRules, validYear), catalog.SentinelYear),
		Rating:  orSentinel(p.scalarField(pg, "rating", ratingRules, validRating), catalog.SentinelRating),
		Genres:  orSentinelList(p.listField(pg, "genres", genreRules), catalog.SentinelGenre),
		Cast:    orSentinelList(p.listField(pg, "cast", castRules), catalog.SentinelActor),
		Poster:  p.posterField(pg),
		Summary: p.summaryField(pg),
	}
	return Clean(rec), nil
}

// scalarField tries rules in order and returns the first validated match.
func (p *Parser) scalarField(pg page, field string, rules []rule, valid func(string) bool) string {
	for _, r := range rules {
		matches := r.extract(pg)
		if len(matches) == 0 {
			continue
		}
		v := cleanText(matches[0])
		if v == "" {
			continue
		}
		if valid != nil && !valid(v) {
			continue
		}
		metrics.ObserveFieldRule(field, r.name)
		return v
	}
	p.logger.Debug("no extraction rule matched", zap.String("field", field))
	return ""
}

// listField applies rules in order and accumulates every match of the first
// rule that yields at least one, deduplicated.
func (p *Parser) listField(pg page, field string, rules []rule) []string {
	for _, r := range rules {
		matches := r.extract(pg)
		out := dedupeClean(matches)
		if len(out) == 0 {
			continue
		}
		metrics.ObserveFieldRule(field, r.name)
		return out
	}
	p.logger.Debug("no extraction rule matched", zap.String("field", field))
	return nil
}

func (p *Parser) posterField(pg page) string {
	raw := p.scalarField(pg, "poster", posterRules, nil)
	if raw == "" {
		return catalog.SentinelPoster
	}
	return p.absolutizePoster(raw)
}

// absolutizePoster strips resize/query suffixes and resolves
// protocol-relative and root-relative addresses against the catalog origin.
func (p *Parser) absolutizePoster(raw string) string {
	if idx := strings.Index(raw, "?"); idx >= 0 {
		raw = raw[:idx]
	}
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return p.baseOrigin + raw
	default:
		return raw
	}
}

func (p *Parser) summaryField(pg page) string {
	for _, r := range summaryRules {
		matches := r.extract(pg)
		if len(matches) == 0 {
			continue
		}
		text := cleanSummary(matches[0])
		if len([]rune(text)) < p.summaryMinLen {
			continue
		}
		metrics.ObserveFieldRule("summary", r.name)
		return truncate(text, p.summaryMaxLen)
	}
	return catalog.SentinelSummary
}

func validYear(s string) bool   { return fourDigitYear.MatchString(s) }
func validRating(s string) bool { return decimalPattern.MatchString(s) }

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}

func orSentinelList(vs []string, sentinel string) []string {
	if len(vs) == 0 {
		return []string{sentinel}
	}
	return vs
}

// cleanText unescapes HTML entities and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

var summaryBoilerplate = regexp.MustCompile(`©\s*豆瓣|\(?展开全部\)?`)

func cleanSummary(s string) string {
	s = summaryBoilerplate.ReplaceAllString(s, " ")
	return cleanText(s)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func dedupeClean(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = cleanText(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
