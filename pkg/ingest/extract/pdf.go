package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts text page by page, tolerating individual page
// failures by recording a warning instead of aborting the whole document.
type PDFParser struct {
	MaxChars int
	MaxPages int
}

func (p *PDFParser) Parse(data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("extract: open pdf: %w", err)
	}

	var sb strings.Builder
	var warnings []string
	numPages := reader.NumPage()
	pagesRead := 0

	for i := 1; i <= numPages; i++ {
		if p.MaxPages > 0 && pagesRead >= p.MaxPages {
			warnings = append(warnings, fmt.Sprintf("stopped after %d pages (page cap)", p.MaxPages))
			break
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			warnings = append(warnings, fmt.Sprintf("page %d: empty or unreadable", i))
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, perr))
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		pagesRead++
	}

	text := normalizeText(sb.String())
	truncated, wasTruncated := truncate(text, p.MaxChars)
	if wasTruncated {
		warnings = append(warnings, fmt.Sprintf("truncated at %d characters", p.MaxChars))
	}
	if truncated == "" {
		return Result{}, fmt.Errorf("extract: empty extraction")
	}

	return Result{Text: truncated, Pages: pagesRead, Warnings: warnings}, nil
}
