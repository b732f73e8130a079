package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, cell))
		}
	}

	path := filepath.Join(t.TempDir(), "fixed.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestRowByArticle(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Артикул", "Состав", "Страна производства"},
		{"ABC-001", "80% хлопок; 20% эластан", "Россия"},
		{"ABC-002", "100% вискоза", ""},
	})

	src := NewExcelFixedData(path)

	row, err := src.RowByArticle("ABC-001")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Состав":              "80% хлопок; 20% эластан",
		"Страна производства": "Россия",
	}, row)

	// Empty cells are dropped, not kept as empty strings.
	row, err = src.RowByArticle("abc-002")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Состав": "100% вискоза"}, row)
}

func TestRowByArticleUnknown(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Артикул", "Состав"},
		{"ABC-001", "хлопок"},
	})

	row, err := NewExcelFixedData(path).RowByArticle("MISSING")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRowByArticleMissingFile(t *testing.T) {
	_, err := NewExcelFixedData(filepath.Join(t.TempDir(), "absent.xlsx")).RowByArticle("ABC")
	assert.Error(t, err)
}

func TestRowByArticleHeaderOnly(t *testing.T) {
	path := writeWorkbook(t, [][]string{{"Артикул", "Состав"}})

	row, err := NewExcelFixedData(path).RowByArticle("ABC")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSplitFixedValues(t *testing.T) {
	out := SplitFixedValues(map[string]string{
		"Состав":       "80% хлопок; 20% эластан",
		"Назначение":   "офисный, повседневный",
		"Комплектация": "  ",
	})

	assert.Equal(t, []string{"80% хлопок", "20% эластан"}, out["Состав"])
	assert.Equal(t, []string{"офисный", "повседневный"}, out["Назначение"])
	_, ok := out["Комплектация"]
	assert.False(t, ok)
}
