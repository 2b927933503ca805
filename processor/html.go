package processor

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/slanger"
	"golang.org/x/net/html"
)

// NoSlangAttr excludes an element and its descendants from scanning.
const NoSlangAttr = "data-no-slang"

// HighlightClass is the class of the span Annotate wraps around each term.
const HighlightClass = "slang-term"

// sentenceBreaks end a sentence inside a text node.
const sentenceBreaks = ".!?\n"

// HTMLScanner finds slang terms in the text nodes of an HTML document.
type HTMLScanner struct {
	ignoredTags map[string]bool
}

// NewHTMLScanner creates a scanner with the default ignored tags.
func NewHTMLScanner() *HTMLScanner {
	return &HTMLScanner{
		ignoredTags: slanger.IgnoredTags,
	}
}

// NewHTMLScannerWithIgnoredTags creates a scanner with custom ignored tags.
func NewHTMLScannerWithIgnoredTags(tags []string) *HTMLScanner {
	ignored := make(map[string]bool)
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &HTMLScanner{
		ignoredTags: ignored,
	}
}

// ContentType returns "html".
func (s *HTMLScanner) ContentType() string {
	return "html"
}

// Scan reports every occurrence of a known term in content. Each match carries the
// sentence around the term as its context. Matches are deduplicated by
// term and context and returned in document order.
func (s *HTMLScanner) Scan(content string, known []string) ([]Match, error) {
	doc, err := s.parse(content)
	if err != nil {
		return nil, err
	}

	terms := normalizeTerms(known)
	if len(terms) == 0 {
		return nil, nil
	}

	var matches []Match
	seen := make(map[Match]bool)

	for _, n := range s.textNodes(doc) {
		text := n.Data
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, h := range findAll(text, terms) {
			m := Match{
				Term:    h.term,
				Context: sentenceAround(text, h.at, len(h.term)),
			}
			if n.Parent != nil {
				m.Tag = n.Parent.Data
			}
			// Dedupe ignores the tag: one sentence, one lookup.
			key := Match{Term: m.Term, Context: m.Context}
			if seen[key] {
				continue
			}
			seen[key] = true
			matches = append(matches, m)
		}
	}

	return matches, nil
}

// Annotate wraps each occurrence of a term from lines in a
// <span class="slang-term" data-slang="term" title="line"> element.
// Terms without a line, and fallback lines, are left untouched.
func (s *HTMLScanner) Annotate(content string, lines map[string]string) (string, error) {
	doc, err := s.parse(content)
	if err != nil {
		return "", err
	}

	var terms []string
	for term, line := range lines {
		if strings.TrimSpace(term) == "" || slanger.IsFallback(line) {
			continue
		}
		terms = append(terms, term)
	}
	// Longer terms win when one contains another.
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})

	if len(terms) > 0 {
		// Collect first; the tree is mutated below.
		for _, n := range s.textNodes(doc) {
			segments := splitByTerms(n.Data, terms)
			if len(segments) == 1 && segments[0].term == "" {
				continue
			}
			parent := n.Parent
			for _, seg := range segments {
				parent.InsertBefore(seg.node(lines), n)
			}
			parent.RemoveChild(n)
		}
	}

	out, err := doc.Html()
	if err != nil {
		return "", &slanger.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return out, nil
}

func (s *HTMLScanner) parse(content string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &slanger.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return doc, nil
}

// textNodes returns the text nodes outside ignored and opted-out elements.
func (s *HTMLScanner) textNodes(doc *goquery.Document) []*html.Node {
	skip := make(map[*html.Node]bool)
	doc.Find("[" + NoSlangAttr + "]").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			skip[n] = true
		}
	})

	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skip[n] || s.ignoredTags[strings.ToLower(n.Data)] {
				return
			}
		}

		if n.Type == html.TextNode && n.Parent != nil {
			nodes = append(nodes, n)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}
	return nodes
}

type hit struct {
	at   int
	term string
}

// findAll returns every occurrence of every term in text, by position.
func findAll(text string, terms []string) []hit {
	var hits []hit
	for _, term := range terms {
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], term)
			if i < 0 {
				break
			}
			hits = append(hits, hit{at: from + i, term: term})
			from += i + len(term)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })
	return hits
}

// normalizeTerms trims, drops empties and deduplicates, keeping order.
func normalizeTerms(known []string) []string {
	terms := make([]string, 0, len(known))
	seen := make(map[string]bool, len(known))
	for _, term := range known {
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}

// sentenceAround returns the sentence of text containing text[idx:idx+n],
// with whitespace collapsed.
func sentenceAround(text string, idx, n int) string {
	start := strings.LastIndexAny(text[:idx], sentenceBreaks) + 1

	end := len(text)
	if pos := strings.IndexAny(text[idx+n:], sentenceBreaks); pos >= 0 {
		end = idx + n + pos + 1
	}

	return strings.Join(strings.Fields(text[start:end]), " ")
}

type segment struct {
	text string
	term string // Non-empty when the segment is a term occurrence
}

func (seg segment) node(lines map[string]string) *html.Node {
	if seg.term == "" {
		return &html.Node{Type: html.TextNode, Data: seg.text}
	}
	span := &html.Node{
		Type: html.ElementNode,
		Data: "span",
		Attr: []html.Attribute{
			{Key: "class", Val: HighlightClass},
			{Key: "data-slang", Val: seg.term},
			{Key: "title", Val: lines[seg.term]},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: seg.text})
	return span
}

// splitByTerms cuts text into plain and term segments. terms must be
// sorted longest first.
func splitByTerms(text string, terms []string) []segment {
	var segments []segment
	rest := text

	for rest != "" {
		at, term := -1, ""
		for _, t := range terms {
			i := strings.Index(rest, t)
			if i >= 0 && (at < 0 || i < at) {
				at, term = i, t
			}
		}
		if at < 0 {
			break
		}
		if at > 0 {
			segments = append(segments, segment{text: rest[:at]})
		}
		segments = append(segments, segment{text: term, term: term})
		rest = rest[at+len(term):]
	}

	if rest != "" || len(segments) == 0 {
		segments = append(segments, segment{text: rest})
	}
	return segments
}

// Verify HTMLScanner implements Scanner
var _ Scanner = (*HTMLScanner)(nil)
