package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// Tabular detector output has a header row naming at least x1, y1, x2, y2
// and prob. A detection column is optional. Column order is free.
var requiredColumns = []string{"x1", "y1", "x2", "y2", "prob"}

const detectionColumn = "detection"

func decodeCSV(ctx context.Context, data []byte) (*model.Scene, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := streamCSV(ctx, bytes.NewReader(data))
	return facesFromRows(rowCh, errCh)
}

func decodeXLSX(ctx context.Context, data []byte) (*model.Scene, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := streamSheet(ctx, f.Sheets[0])
	return facesFromRows(rowCh, errCh)
}

// streamCSV reads CSV records and sends them to a channel. Fields are
// trimmed and lines starting with '#' are skipped. Both channels are closed
// when processing completes.
func streamCSV(ctx context.Context, r io.Reader) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.Comment = '#'
		reader.FieldsPerRecord = -1

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// streamSheet sends each row of sheet as strings.
func streamSheet(ctx context.Context, sheet *xlsx.Sheet) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = strings.TrimSpace(cell.String())
			}

			select {
			case rowCh <- cells:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xlsx: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

type columns struct {
	x1, y1, x2, y2, prob int
	detection            int // -1 when absent
}

func parseHeader(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(h)] = i
	}

	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return columns{}, eris.Errorf("table: missing column %q", name)
		}
	}

	c := columns{
		x1: idx["x1"], y1: idx["y1"], x2: idx["x2"], y2: idx["y2"],
		prob:      idx["prob"],
		detection: -1,
	}
	if i, ok := idx[detectionColumn]; ok {
		c.detection = i
	}
	return c, nil
}

func (c columns) face(row []string) (model.FaceRecord, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var coords [4]int
	for k, i := range []int{c.x1, c.y1, c.x2, c.y2} {
		v, err := parseCoordinate(cell(i))
		if err != nil {
			return model.FaceRecord{}, err
		}
		coords[k] = v
	}

	prob, err := strconv.ParseFloat(cell(c.prob), 64)
	if err != nil {
		return model.FaceRecord{}, eris.Wrapf(err, "table: parse prob %q", cell(c.prob))
	}

	var detection float64
	if s := cell(c.detection); s != "" {
		if detection, err = strconv.ParseFloat(s, 64); err != nil {
			return model.FaceRecord{}, eris.Wrapf(err, "table: parse detection %q", s)
		}
	}

	return FaceDoc{Box: coords[:], Prob: prob, Detection: detection}.Record()
}

// parseCoordinate accepts integers and integral floats such as "12.0",
// which spreadsheets commonly produce.
func parseCoordinate(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, eris.Errorf("table: invalid coordinate %q", s)
	}
	return int(f), nil
}

func blank(row []string) bool {
	for _, s := range row {
		if s != "" {
			return false
		}
	}
	return true
}

// facesFromRows consumes a row stream whose first non-blank row is the
// header. The caller cancels the stream's context on return.
func facesFromRows(rowCh <-chan []string, errCh <-chan error) (*model.Scene, error) {
	var (
		cols      columns
		haveCols  bool
		faces     []model.FaceRecord
		rowNumber int
	)

	for row := range rowCh {
		rowNumber++
		if blank(row) {
			continue
		}
		if !haveCols {
			c, err := parseHeader(row)
			if err != nil {
				return nil, err
			}
			cols, haveCols = c, true
			continue
		}

		f, err := cols.face(row)
		if err != nil {
			return nil, eris.Wrapf(err, "table: row %d", rowNumber)
		}
		faces = append(faces, f)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if !haveCols {
		return nil, eris.New("table: missing header row")
	}

	return &model.Scene{Faces: faces}, nil
}
