package extract

import "fmt"

// PlainTextParser handles text/plain with no page concept.
type PlainTextParser struct {
	MaxChars int
}

func (p *PlainTextParser) Parse(data []byte) (Result, error) {
	text := normalizeText(string(data))
	var warnings []string
	truncated, wasTruncated := truncate(text, p.MaxChars)
	if wasTruncated {
		warnings = append(warnings, fmt.Sprintf("truncated at %d characters", p.MaxChars))
	}
	if truncated == "" {
		return Result{}, fmt.Errorf("extract: empty extraction")
	}
	return Result{Text: truncated, Pages: 1, Warnings: warnings}, nil
}
