package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ErrEmptyTitle is returned for candidates whose title is blank after cleaning.
var ErrEmptyTitle = errors.New("candidate has no title")

// trackingParams are query parameters stripped during URL canonicalization.
var trackingParams = []string{"utm_", "fbclid", "gclid", "mc_cid", "mc_eid", "ref"}

// Normalize turns a RawCandidate into an Item attributed to src. A missing or
// unparseable publication time leaves PublishedAt zero; the retention filter
// drops such items later.
func Normalize(src Source, raw RawCandidate) (Item, error) {
	title := CleanText(raw.Title)
	if title == "" {
		return Item{}, ErrEmptyTitle
	}

	link := CanonicalURL(raw.URL, src.URL)
	published, _ := ParsePublished(raw.PublishedRaw)

	publishedKey := ""
	if !published.IsZero() {
		publishedKey = FormatCivil(published)
	}

	it := Item{
		ID:            generateID(src.Name, link, publishedKey),
		Source:        src.Name,
		SourceLabel:   src.Label,
		Tier:          src.Tier,
		Domain:        src.Vertical,
		Title:         title,
		Summary:       CleanText(raw.Summary),
		PublishedAt:   published,
		AffectedAreas: []string{},
		VerifiedBy:    src.VerifiedBy,
		OfficialURL:   link,
		Authority:     src.Authority,
		WindowText:    CleanText(raw.WindowText),
	}
	if st, ok := ParseStatus(raw.Status); ok && src.Vertical == VerticalPower {
		it.Status = st
	}
	if it.SourceLabel == "" {
		it.SourceLabel = src.Name
	}
	return it, nil
}

// generateID produces a deterministic ID from the source, canonical URL and
// publication time. Re-running ingestion over the same report yields the same ID.
func generateID(source, canonicalURL, published string) string {
	input := fmt.Sprintf("%s|%s|%s", source, canonicalURL, published)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if source == "" {
		return short
	}
	return source + "-" + short
}

// CleanText strips HTML markup, decodes entities and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li", "tr", "td", "h1", "h2", "h3", "h4":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "tr", "td", "h1", "h2", "h3", "h4":
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// CanonicalURL resolves ref against base and normalizes it: lower-case scheme
// and host, no fragment, no tracking parameters, sorted query, no trailing
// slash. An empty ref yields the canonical base.
func CanonicalURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = base
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if !u.IsAbs() && base != "" {
		if b, err := url.Parse(base); err == nil {
			u = b.ResolveReference(u)
		}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) || (u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	q := u.Query()
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
		}
	}
	u.RawQuery = encodeSorted(q)

	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	return u.String()
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	for _, p := range trackingParams {
		if key == p || (strings.HasSuffix(p, "_") && strings.HasPrefix(key, p)) {
			return true
		}
	}
	return false
}

func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
