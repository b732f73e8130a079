package source

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ExcelFixedData reads merchant-fixed values from an xlsx workbook.
// The first sheet is used: row one is the header, the first column
// holds the article, and every other column is a field name. The
// workbook is loaded lazily on first use and cached; Reload picks up
// an updated file.
type ExcelFixedData struct {
	path string

	mu     sync.RWMutex
	rows   map[string]map[string]string
	loaded bool
}

// NewExcelFixedData creates a source backed by the workbook at path.
func NewExcelFixedData(path string) *ExcelFixedData {
	return &ExcelFixedData{path: path}
}

// RowByArticle returns the fixed values for an article, keyed by header
// name, with the article column excluded. Articles match
// case-insensitively after trimming. An unknown article yields nil, nil.
func (s *ExcelFixedData) RowByArticle(article string) (map[string]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[normalizeArticle(article)]
	if !ok {
		return nil, nil
	}

	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

// Reload re-reads the workbook on next access.
func (s *ExcelFixedData) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.rows = nil
}

func (s *ExcelFixedData) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	rows, err := readWorkbook(s.path)
	if err != nil {
		return err
	}
	s.rows = rows
	s.loaded = true
	return nil
}

func readWorkbook(path string) (map[string]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open fixed data workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("fixed data workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return map[string]map[string]string{}, nil
	}

	header := rows[0]
	out := make(map[string]map[string]string, len(rows)-1)

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		key := normalizeArticle(row[0])
		if key == "" {
			continue
		}

		record := make(map[string]string)
		for i := 1; i < len(row) && i < len(header); i++ {
			name := strings.TrimSpace(header[i])
			value := strings.TrimSpace(row[i])
			if name != "" && value != "" {
				record[name] = value
			}
		}
		out[key] = record
	}

	return out, nil
}

func normalizeArticle(article string) string {
	return strings.ToLower(strings.TrimSpace(article))
}

// SplitFixedValues expands a raw cell into the value list a
// characteristic carries: semicolons are treated as commas, parts are
// trimmed, empty parts dropped.
func SplitFixedValues(row map[string]string) map[string][]string {
	if len(row) == 0 {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(row))
	for name, raw := range row {
		parts := splitList(raw)
		if len(parts) > 0 {
			out[name] = parts
		}
	}
	return out
}

func splitList(raw string) []string {
	parts := strings.Split(strings.ReplaceAll(raw, ";", ","), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
