package document

import (
	"bytes"
	"fmt"
	"strings"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"

	"github.com/jmallari/pactum/internal/common"
	"github.com/jmallari/pactum/internal/contract"
)

// ExtractPages extracts per-page text from PDF bytes. The primary extractor
// reads the page content streams directly; when it yields no text at all
// (scanned or oddly encoded documents), a row-based fallback reader is tried.
func ExtractPages(data []byte) ([]contract.PageText, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf payload")
	}
	pages, err := extractPlainText(data)
	if err != nil {
		common.Logger().Warn("document: primary pdf extraction failed", "error", err)
	}
	if hasText(pages) {
		return pages, nil
	}
	fallback, fbErr := extractByRows(data)
	if fbErr != nil {
		if err != nil {
			return nil, fmt.Errorf("pdf extraction failed: %w", err)
		}
		return nil, fmt.Errorf("pdf extraction failed: %w", fbErr)
	}
	if hasText(fallback) {
		return fallback, nil
	}
	if len(pages) > 0 {
		return pages, nil
	}
	return fallback, nil
}

func hasText(pages []contract.PageText) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

func extractPlainText(data []byte) (pages []contract.PageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	total := reader.NumPage()
	pages = make([]contract.PageText, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, contract.PageText{Page: i})
			continue
		}
		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			common.Logger().Warn("document: page text extraction failed", "page", i, "error", textErr)
			pages = append(pages, contract.PageText{Page: i})
			continue
		}
		pages = append(pages, contract.PageText{Page: i, Text: text})
	}
	return pages, nil
}

func extractByRows(data []byte) (pages []contract.PageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf fallback reader panic: %v", r)
		}
	}()
	reader, err := dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	total := reader.NumPage()
	pages = make([]contract.PageText, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			common.Logger().Warn("document: fallback page extraction failed", "page", i, "error", rowErr)
			pages = append(pages, contract.PageText{Page: i})
			continue
		}
		var builder strings.Builder
		for _, row := range rows {
			for idx, text := range row.Content {
				builder.WriteString(text.S)
				if idx < len(row.Content)-1 {
					builder.WriteByte(' ')
				}
			}
			builder.WriteByte('\n')
		}
		pages = append(pages, contract.PageText{Page: i, Text: builder.String()})
	}
	return pages, nil
}
