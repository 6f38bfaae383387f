package understat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Script variables embedded in league pages.
const (
	varTeams = "teamsData"
	varDates = "datesData"
)

var jsonParsePattern = regexp.MustCompile(`var\s+(\w+)\s*=\s*JSON\.parse\('((?:[^'\\]|\\.)*)'\)`)

// extractVariables collects every `var x = JSON.parse('...')` blob from the
// page's script tags, keyed by variable name, with escapes decoded.
func extractVariables(page []byte) (map[string][]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	vars := make(map[string][]byte)
	var decodeErr error
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, m := range jsonParsePattern.FindAllStringSubmatch(s.Text(), -1) {
			decoded, err := decodeJSString(m[2])
			if err != nil {
				decodeErr = fmt.Errorf("decoding %s: %w", m[1], err)
				return false
			}
			vars[m[1]] = []byte(decoded)
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return vars, nil
}

// decodeJSString resolves the escapes used inside a single-quoted JS literal.
func decodeJSString(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling escape at offset %d", i)
		}
		i++
		switch s[i] {
		case 'x':
			if i+3 > len(s) {
				return "", fmt.Errorf("short \\x escape at offset %d", i)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad \\x escape at offset %d: %w", i, err)
			}
			b.WriteByte(byte(v))
			i += 2
		case 'u':
			if i+5 > len(s) {
				return "", fmt.Errorf("short \\u escape at offset %d", i)
			}
			v, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("bad \\u escape at offset %d: %w", i, err)
			}
			b.WriteRune(rune(v))
			i += 4
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			// \\ \' \" \/ and anything else stand for themselves.
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func parseTeams(vars map[string][]byte) (map[string]teamData, error) {
	raw, ok := vars[varTeams]
	if !ok {
		return nil, fmt.Errorf("page has no %s", varTeams)
	}
	var teams map[string]teamData
	if err := json.Unmarshal(raw, &teams); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", varTeams, err)
	}
	return teams, nil
}

func parseDates(vars map[string][]byte) ([]dateData, error) {
	raw, ok := vars[varDates]
	if !ok {
		return nil, fmt.Errorf("page has no %s", varDates)
	}
	var dates []dateData
	if err := json.Unmarshal(raw, &dates); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", varDates, err)
	}
	return dates, nil
}
