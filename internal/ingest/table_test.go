package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Faces")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "faces.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeTestFile(t, "faces.csv", `# detector v2
x1,y1,x2,y2,prob,detection
0, 0, 100, 150, -97.5, 0.9
300,0,400,150,88.0,0.35

20,30,40,60,12.5,
`)

	scene, err := Load(context.Background(), path, Options{DetectionThreshold: 0.4})
	require.NoError(t, err)
	require.Len(t, scene.Faces, 2)

	assert.Equal(t, model.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 150}, scene.Faces[0].Bounds)
	assert.False(t, scene.Faces[0].Masked)
	assert.Equal(t, model.Bounds{X1: 20, Y1: 30, X2: 40, Y2: 60}, scene.Faces[1].Bounds)
	assert.Zero(t, scene.Faces[1].DetectionScore)
}

func TestLoad_CSVColumnOrder(t *testing.T) {
	path := writeTestFile(t, "faces.csv", "PROB,Y2,X2,Y1,X1\n-40,150,100,0,0\n")

	scene, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, scene.Faces, 1)
	assert.Equal(t, model.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 150}, scene.Faces[0].Bounds)
	assert.InDelta(t, -40, scene.Faces[0].SignedConfidence(), 1e-9)
}

func TestLoad_CSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing column", "x1,y1,x2,y2\n1,2,3,4\n", `missing column "prob"`},
		{"bad coordinate", "x1,y1,x2,y2,prob\n1.5,2,3,4,10\n", "invalid coordinate"},
		{"bad prob", "x1,y1,x2,y2,prob\n1,2,3,4,high\n", "parse prob"},
		{"row number reported", "x1,y1,x2,y2,prob\n1,2,3,4,10\n1,2,x,4,10\n", "row 3"},
		{"no header", "\n\n", "missing header row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, "faces.csv", tt.content)
			_, err := Load(context.Background(), path, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"x1", "y1", "x2", "y2", "prob", "detection"},
		{"0", "0", "100", "150", "-90", "0.95"},
		{"300.0", "0", "400", "150", "75", "0.2"},
		{"500", "0", "600", "150", "60", "0.8"},
	})

	scene, err := Load(context.Background(), path, Options{DetectionThreshold: 0.4})
	require.NoError(t, err)
	require.Len(t, scene.Faces, 2)
	assert.Equal(t, 500, scene.Faces[1].Bounds.X1)

	raw, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, raw.Faces, 3)
	assert.Equal(t, 300, raw.Faces[1].Bounds.X1, "integral float coordinate accepted")
}

func TestParse_XLSXInvalid(t *testing.T) {
	_, err := Parse(context.Background(), FormatXLSX, []byte("not a workbook"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open")
}

func TestParseCoordinate(t *testing.T) {
	v, err := parseCoordinate("42")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = parseCoordinate("-3.0")
	require.NoError(t, err)
	assert.Equal(t, -3, v)

	_, err = parseCoordinate("")
	assert.Error(t, err)
}
