package icd10

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// placeholderSuffix matches trailing "X" placeholders optionally followed by
// a seventh-character encounter marker, e.g. the "XXA" in "S52.5XXA".
var placeholderSuffix = regexp.MustCompile(`X+[ADS]?$`)

// BaseCode strips wildcard, placeholder and encounter suffixes from a code:
//
//	"s52.5xxa" -> "S52.5"
//	"S52.521A" -> "S52.521"
//	"J06.*"    -> "J06"
func BaseCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	c = strings.TrimRight(c, "*")
	c = strings.TrimSuffix(c, ".")

	if stripped := placeholderSuffix.ReplaceAllString(c, ""); stripped != c && len(stripped) >= 3 {
		c = stripped
	} else if len(strings.ReplaceAll(c, ".", "")) == 7 && strings.ContainsAny(c[len(c)-1:], "ADS") {
		c = strings.TrimRight(c[:len(c)-1], "X")
	}
	return strings.TrimSuffix(c, ".")
}

// GetByCode resolves a code. It tries, in order: an exact match; the base
// code with placeholder/encounter suffixes removed (with or without the dot);
// and, when the query carries description text after the code ("E11
// diabetes"), the first code in catalog order that starts with the base code
// and whose description contains every text token.
func (c *Catalog) GetByCode(query string) (Code, bool) {
	if code, ok := c.byExactOrBase(query); ok {
		return code, true
	}

	fields := strings.Fields(query)
	if len(fields) < 2 {
		return Code{}, false
	}
	compactBase := compactCode(BaseCode(fields[0]))
	if compactBase == "" {
		return Code{}, false
	}
	tokens := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		tokens = append(tokens, strings.ToLower(f))
	}
	for i := range c.codes {
		if !strings.HasPrefix(c.compact[i], compactBase) {
			continue
		}
		if containsAll(c.lowerDesc[i], tokens) || containsAll(c.lowerShort[i], tokens) {
			return c.codes[i], true
		}
	}
	return Code{}, false
}

// byExactOrBase resolves the first field of query as a code, ignoring any
// trailing description text.
func (c *Catalog) byExactOrBase(query string) (Code, bool) {
	if i, ok := c.byCode[query]; ok {
		return c.codes[i], true
	}

	fields := strings.Fields(query)
	if len(fields) == 0 {
		return Code{}, false
	}

	upper := strings.ToUpper(fields[0])
	if i, ok := c.byCode[upper]; ok {
		return c.codes[i], true
	}
	if i, ok := c.byCompact[compactCode(upper)]; ok {
		return c.codes[i], true
	}

	base := BaseCode(fields[0])
	if base == "" {
		return Code{}, false
	}
	if i, ok := c.byCode[base]; ok {
		return c.codes[i], true
	}
	if i, ok := c.byCompact[compactCode(base)]; ok {
		return c.codes[i], true
	}
	return Code{}, false
}

func containsAll(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

// SearchByDescription returns codes whose full or short description matches
// term, case-insensitively. Exact matches come first, then substring
// matches, capped at SearchLimit. A blank term yields an empty result.
func (c *Catalog) SearchByDescription(term string) []Code {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return []Code{}
	}

	var exact, partial []Code
	for i := range c.codes {
		desc, short := c.lowerDesc[i], c.lowerShort[i]
		switch {
		case desc == t || (short != "" && short == t):
			exact = append(exact, c.codes[i])
		case len(partial) < SearchLimit && (strings.Contains(desc, t) || strings.Contains(short, t)):
			partial = append(partial, c.codes[i])
		}
		if len(exact) >= SearchLimit {
			break
		}
	}

	out := make([]Code, 0, min(len(exact)+len(partial), SearchLimit))
	out = append(out, exact...)
	out = append(out, partial...)
	if len(out) > SearchLimit {
		out = out[:SearchLimit]
	}
	return out
}

// SuggestCodes returns up to SuggestLimit codes for free diagnosis text.
func (c *Catalog) SuggestCodes(text string) []Code {
	return c.Suggest(text).Codes
}

// Suggest matches the whole lower-cased text against descriptions first.
// Only when that finds nothing are words longer than three characters tried
// one by one, de-duplicated by code.
func (c *Catalog) Suggest(text string) Suggestion {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Suggestion{Codes: []Code{}, Stage: StageNone}
	}

	direct := make([]Code, 0, SuggestLimit)
	for i := range c.codes {
		if c.matches(i, t) {
			direct = append(direct, c.codes[i])
			if len(direct) >= SuggestLimit {
				break
			}
		}
	}
	if len(direct) > 0 {
		return Suggestion{Codes: direct, Stage: StageDirect}
	}

	byToken := make([]Code, 0, SuggestLimit)
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(t) {
		if utf8.RuneCountInString(word) <= 3 {
			continue
		}
		for i := range c.codes {
			if !c.matches(i, word) {
				continue
			}
			if _, dup := seen[c.codes[i].Code]; dup {
				continue
			}
			seen[c.codes[i].Code] = struct{}{}
			byToken = append(byToken, c.codes[i])
			if len(byToken) >= SuggestLimit {
				return Suggestion{Codes: byToken, Stage: StageToken}
			}
		}
	}
	if len(byToken) > 0 {
		return Suggestion{Codes: byToken, Stage: StageToken}
	}
	return Suggestion{Codes: byToken, Stage: StageNone}
}

func (c *Catalog) matches(i int, needle string) bool {
	return strings.Contains(c.lowerDesc[i], needle) || strings.Contains(c.lowerShort[i], needle)
}

// GetRelatedCodes returns other codes in the same category as code, in
// catalog order, capped at RelatedLimit.
func (c *Catalog) GetRelatedCodes(code string) []Code {
	item, ok := c.GetByCode(code)
	if !ok {
		return []Code{}
	}
	out := make([]Code, 0, RelatedLimit)
	for _, i := range c.byCategory[item.CategoryCode] {
		if c.codes[i].Code == item.Code {
			continue
		}
		out = append(out, c.codes[i])
		if len(out) >= RelatedLimit {
			break
		}
	}
	return out
}

// GetCategoryForCode returns the category a code belongs to.
func (c *Catalog) GetCategoryForCode(code string) (Category, bool) {
	item, ok := c.GetByCode(code)
	if !ok {
		return Category{}, false
	}
	i, ok := c.categoryByID[item.CategoryCode]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// GetByCategory returns codes whose category title or category code equals
// category, capped at CategoryLimit.
func (c *Catalog) GetByCategory(category string) []Code {
	return c.categoryCodes(category, CategoryLimit)
}

// CategoryCodes returns every code in the category, uncapped, for callers
// that page through the result.
func (c *Catalog) CategoryCodes(category string) []Code {
	return c.categoryCodes(category, 0)
}

// categoryCodes collects up to limit codes; limit <= 0 means no cap.
func (c *Catalog) categoryCodes(category string, limit int) []Code {
	out := []Code{}
	if category == "" {
		return out
	}
	full := func() bool { return limit > 0 && len(out) >= limit }
	if idx, ok := c.byCategory[category]; ok {
		for _, i := range idx {
			out = append(out, c.codes[i])
			if full() {
				break
			}
		}
		return out
	}
	for _, code := range c.codes {
		if code.Category == category {
			out = append(out, code)
			if full() {
				break
			}
		}
	}
	return out
}

// AdvancedSearch applies every non-empty filter in q. CodeRange has the form
// "A00-B99"; the end bound is inclusive of all codes under it, so "B99.9"
// falls inside "A00-B99".
func (c *Catalog) AdvancedSearch(q AdvancedQuery) []Code {
	limit := q.Limit
	if limit <= 0 {
		limit = SearchLimit
	}
	term := strings.ToLower(strings.TrimSpace(q.Term))

	var start, end string
	if parts := strings.SplitN(q.CodeRange, "-", 2); len(parts) == 2 {
		start = strings.ToUpper(strings.TrimSpace(parts[0]))
		end = strings.ToUpper(strings.TrimSpace(parts[1]))
	}

	out := []Code{}
	for i, code := range c.codes {
		if term != "" && !c.matches(i, term) && !strings.Contains(strings.ToLower(code.Code), term) {
			continue
		}
		if q.Category != "" && code.Category != q.Category && code.CategoryCode != q.Category {
			continue
		}
		if start != "" && end != "" {
			upper := strings.ToUpper(code.Code)
			if upper < start || (upper > end && !strings.HasPrefix(upper, end)) {
				continue
			}
		}
		out = append(out, code)
		if len(out) >= limit {
			break
		}
	}
	return out
}
