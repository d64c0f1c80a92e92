package extract

import (
	"bytes"
	"fmt"

	"github.com/nguyenthenguyen/docx"
)

// DOCXParser extracts the document body text from an OOXML .docx file.
type DOCXParser struct {
	MaxChars int
}

func (p *DOCXParser) Parse(data []byte) (Result, error) {
	reader := bytes.NewReader(data)
	doc, err := docx.ReadDocxFromMemory(reader, int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("extract: open docx: %w", err)
	}
	defer doc.Close()

	text := normalizeText(doc.Editable().GetContent())
	truncated, wasTruncated := truncate(text, p.MaxChars)
	var warnings []string
	if wasTruncated {
		warnings = append(warnings, fmt.Sprintf("truncated at %d characters", p.MaxChars))
	}
	if truncated == "" {
		return Result{}, fmt.Errorf("extract: empty extraction")
	}
	return Result{Text: truncated, Pages: 1, Warnings: warnings}, nil
}
