package scenario

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter keeps the entries matching pattern. The syntax is key=regex[,key=regex...]
// with AND semantics across keys; values may be quoted. A pattern without "="
// matches against the scenario name.
func Filter(entries []Entry, pattern string) ([]Entry, error) {
	if strings.TrimSpace(pattern) == "" {
		return entries, nil
	}
	if !strings.Contains(pattern, "=") {
		pattern = "name=" + pattern
	}

	matchers, err := parseFilter(pattern)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		ok := true
		for _, m := range matchers {
			if !m.re.MatchString(fieldValue(e, m.field)) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

type fieldMatcher struct {
	field string
	re    *regexp.Regexp
}

func parseFilter(q string) ([]fieldMatcher, error) {
	tokens := splitCommaAware(q)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("invalid filter: %q", q)
	}

	var out []fieldMatcher
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		idx := strings.Index(tok, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid filter token: %q (expected key=value)", tok)
		}
		key := strings.TrimSpace(strings.ToLower(tok[:idx]))
		val := strings.TrimSpace(tok[idx+1:])
		if len(val) >= 2 && ((val[0] == '\'' && val[len(val)-1] == '\'') || (val[0] == '"' && val[len(val)-1] == '"')) {
			val = val[1 : len(val)-1]
		}
		field := normalizeFilterKey(key)
		if field == "" {
			return nil, fmt.Errorf("unknown filter field: %s", key)
		}
		re, err := regexp.Compile(val)
		if err != nil {
			return nil, fmt.Errorf("invalid regex for %s: %w", key, err)
		}
		out = append(out, fieldMatcher{field: field, re: re})
	}
	return out, nil
}

func splitCommaAware(s string) []string {
	var toks []string
	var cur strings.Builder
	var inQuote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote == 0 && (ch == '\'' || ch == '"'):
			inQuote = ch
		case inQuote != 0 && ch == inQuote:
			inQuote = 0
		case inQuote == 0 && ch == ',':
			toks = append(toks, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(ch)
	}
	if cur.Len() > 0 {
		toks = append(toks, cur.String())
	}
	return toks
}

func normalizeFilterKey(k string) string {
	switch k {
	case "name", "n":
		return "name"
	case "file", "f":
		return "file"
	case "method", "m":
		return "method"
	case "path", "p":
		return "path"
	default:
		return ""
	}
}

func fieldValue(e Entry, field string) string {
	switch field {
	case "name":
		return e.Scenario.Name
	case "file":
		return e.File.Path
	case "method":
		return strings.ToUpper(e.Scenario.Request.Method)
	case "path":
		return e.Scenario.Request.Path
	default:
		return ""
	}
}
