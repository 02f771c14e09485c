package procurement

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findJSON locates the first JSON object or array in s. Models often wrap
// JSON in code fences or prose.
func findJSON(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if json.Valid([]byte(s)) && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) {
		return json.RawMessage(s), true
	}

	for start := 0; start < len(s); {
		i := strings.IndexAny(s[start:], "{[")
		if i < 0 {
			return nil, false
		}
		start += i

		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(s[start:]))
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
		start++
	}
	return nil, false
}

// listField returns the array under key in an object, or the value itself
// when it is already an array.
func listField(raw json.RawMessage, keys ...string) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if string(bytes.TrimSpace(v)) == "null" {
				return nil, true
			}
			if err := json.Unmarshal(v, &list); err == nil {
				return list, true
			}
			return nil, false
		}
	}
	return nil, false
}

// stringish reads a JSON string, number or an object with one of keys.
func stringish(raw json.RawMessage, keys ...string) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, k := range keys {
			if v, ok := obj[k]; ok {
				return stringish(v)
			}
		}
	}
	return "", false
}

// htmlAttrs collects attr from every element matching selector, when s
// looks like HTML.
func htmlAttrs(s, selector, attr string) []string {
	if !strings.Contains(s, "<") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}

var (
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)`)
	markdownLinkRe  = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	bareURLRe       = regexp.MustCompile(`https?://[^\s"'<>()\[\]]+`)
	imageExtRe      = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|avif|svg)(\?|#|$)`)
	listMarkerRe    = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s*`)
)

// resolveURL makes ref absolute against base. Non-http results are rejected.
func resolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !r.IsAbs() && base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		r = b.ResolveReference(r)
	}
	if r.Scheme != "http" && r.Scheme != "https" {
		return "", false
	}
	return r.String(), true
}

var (
	currencyPrefixRe = regexp.MustCompile(`(?i)(?:US\$|C\$|A\$|[$€£¥₹]|\b(?:usd|eur|gbp|cad|aud|inr|jpy|chf)\b)\s*(\.?\d[\d.,]*)`)
	currencySuffixRe = regexp.MustCompile(`(?i)(\.?\d[\d.,]*)\s*(?:[$€£¥₹]|\b(?:usd|eur|gbp|cad|aud|inr|jpy|chf)\b)`)
	bareNumberRe     = regexp.MustCompile(`^\s*(\.?\d[\d.,]*)\s*$`)
)

// parsePrice extracts the monetary amount from a price string. A number
// next to a currency marker wins; without one the string must be a bare
// number, so counts such as "100 per box" are not prices.
func parsePrice(s string) (float64, bool) {
	var num string
	if m := currencyPrefixRe.FindStringSubmatch(s); m != nil {
		num = m[1]
	} else if m := currencySuffixRe.FindStringSubmatch(s); m != nil {
		num = m[1]
	} else if m := bareNumberRe.FindStringSubmatch(s); m != nil {
		num = m[1]
	}
	num = strings.TrimRight(num, ".,")
	if num == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(normalizeNumber(num), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// normalizeNumber rewrites thousands and decimal separators to Go syntax:
// "1,234.50" and "1.234,50" both become "1234.50".
func normalizeNumber(n string) string {
	lastDot := strings.LastIndex(n, ".")
	lastComma := strings.LastIndex(n, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			n = strings.ReplaceAll(n, ".", "")
			return strings.Replace(n, ",", ".", 1)
		}
		return strings.ReplaceAll(n, ",", "")
	case lastComma >= 0:
		if strings.Count(n, ",") == 1 && len(n)-lastComma-1 != 3 {
			return strings.Replace(n, ",", ".", 1)
		}
		return strings.ReplaceAll(n, ",", "")
	case strings.Count(n, ".") > 1:
		return strings.ReplaceAll(n, ".", "")
	}
	return n
}
