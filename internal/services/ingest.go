package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/models"
)

const batchSize = 1000

type IngestOptions struct {
	DateLayouts []string
	Workers     int
}

func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		DateLayouts: config.DefaultDateLayouts,
		Workers:     4,
	}
}

type requiredColumn struct {
	name    string
	aliases []string
}

// Aliases are matched against normalised headers, in priority order.
var requiredColumns = []requiredColumn{
	{name: "Order_Date", aliases: []string{"orderdate", "date"}},
	{name: "Region", aliases: []string{"region"}},
	{name: "Category", aliases: []string{"category"}},
	{name: "Sales", aliases: []string{"sales"}},
	{name: "Profit", aliases: []string{"profit"}},
}

type columnIndex struct {
	date, region, category, sales, profit int
}

// Ingest parses an uploaded export. Workbooks (.xlsx, .xlsm) are read from
// their first sheet; anything else is treated as delimited text.
func Ingest(ctx context.Context, filename string, r io.Reader, opts IngestOptions) (*models.SalesTable, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(ctx, filename, r, opts)
	default:
		return ParseCSV(ctx, filename, r, opts)
	}
}

func ParseCSV(ctx context.Context, source string, r io.Reader, opts IngestOptions) (*models.SalesTable, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, &ParseError{Msg: "read upload", Err: err}
	}
	if len(bytes.TrimSpace(first)) == 0 {
		return nil, &ParseError{Msg: "file is empty"}
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(source, first)
	format := rowFormat{decimalComma: cr.Comma == ';'}
	cr.TrimLeadingSpace = true

	var (
		rows  [][]string
		lines []int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.Line, Msg: "malformed delimited data", Err: csvErr.Err}
			}
			return nil, &ParseError{Msg: "malformed delimited data", Err: err}
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}
	if len(rows) == 0 {
		return nil, &ParseError{Msg: "file has no header row"}
	}

	return buildTable(ctx, source, rows, lines, opts, format)
}

func ParseXLSX(ctx context.Context, source string, r io.Reader, opts IngestOptions) (*models.SalesTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Msg: "unreadable workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Msg: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("read sheet %q", sheets[0]), Err: err}
	}

	// GetRows trims trailing empty cells and keeps blank rows.
	var (
		trimmed [][]string
		lines   []int
	)
	for i, row := range rows {
		if !blankRow(row) {
			trimmed = append(trimmed, row)
			lines = append(lines, i+1)
		}
	}
	if len(trimmed) == 0 {
		return nil, &ParseError{Msg: "sheet is empty"}
	}

	width := len(trimmed[0])
	for i, row := range trimmed {
		if len(row) > width {
			return nil, &ParseError{Line: lines[i], Msg: fmt.Sprintf("row has %d cells, header has %d", len(row), width)}
		}
		for len(row) < width {
			row = append(row, "")
		}
		trimmed[i] = row
	}

	return buildTable(ctx, source, trimmed, lines, opts, rowFormat{serialDates: true})
}

// rowFormat describes source-specific cell conventions.
type rowFormat struct {
	// serialDates accepts Excel serial numbers as order dates.
	serialDates bool
	// decimalComma reads "1.234,5" amounts, as written by semicolon exports.
	decimalComma bool
}

// buildTable resolves the header in rows[0] and parses the remaining rows.
// lines carries the source line of each row for error reporting.
func buildTable(ctx context.Context, source string, rows [][]string, lines []int, opts IngestOptions, format rowFormat) (*models.SalesTable, error) {
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = config.DefaultDateLayouts
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	data := rows[1:]
	records := make([]models.SalesRecord, len(data))
	rowErrs := make([]error, len(data))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(data); start += batchSize {
		lo, hi := start, min(start+batchSize, len(data))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				rec, err := parseRecord(data[i], lines[i+1], header, cols, layouts, format)
				if err != nil {
					rowErrs[i] = err
					return nil
				}
				records[i] = rec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range rowErrs {
		if err != nil {
			return nil, err
		}
	}

	return &models.SalesTable{
		Source:   source,
		Header:   header,
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

func resolveColumns(header []string) (columnIndex, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	found := make([]int, len(requiredColumns))
	var missing []string
	for ci, col := range requiredColumns {
		found[ci] = -1
	aliases:
		for _, alias := range col.aliases {
			for i, h := range normalized {
				if h == alias {
					found[ci] = i
					break aliases
				}
			}
		}
		if found[ci] < 0 {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, &SchemaError{Missing: missing, Found: header}
	}

	return columnIndex{
		date:     found[0],
		region:   found[1],
		category: found[2],
		sales:    found[3],
		profit:   found[4],
	}, nil
}

func parseRecord(row []string, line int, header []string, cols columnIndex, layouts []string, format rowFormat) (models.SalesRecord, error) {
	rawDate := strings.TrimSpace(row[cols.date])
	date, ok := parseDate(rawDate, layouts, format.serialDates)
	if !ok {
		return models.SalesRecord{}, &DateFormatError{Line: line, Value: rawDate}
	}

	sales, err := parseAmount(row[cols.sales], format.decimalComma)
	if err != nil {
		return models.SalesRecord{}, &ParseError{Line: line, Column: header[cols.sales], Msg: err.Error()}
	}
	if sales.IsNegative() {
		return models.SalesRecord{}, &ParseError{Line: line, Column: header[cols.sales], Msg: "sales amount must not be negative"}
	}

	profit, err := parseAmount(row[cols.profit], format.decimalComma)
	if err != nil {
		return models.SalesRecord{}, &ParseError{Line: line, Column: header[cols.profit], Msg: err.Error()}
	}

	return models.SalesRecord{
		OrderDate: date,
		Region:    strings.TrimSpace(row[cols.region]),
		Category:  strings.TrimSpace(row[cols.category]),
		Sales:     sales,
		Profit:    profit,
		Period:    PeriodOf(date),
		Fields:    append([]string(nil), row...),
	}, nil
}

// parseDate tries each layout in order and truncates the result to a
// calendar date in UTC. Workbook cells may also hold Excel serial numbers.
func parseDate(value string, layouts []string, serialDates bool) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return calendarDate(t), true
		}
	}
	if serialDates {
		if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return calendarDate(t), true
			}
		}
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseAmount drops thousands separators. With decimalComma the roles of
// '.' and ',' are swapped.
func parseAmount(value string, decimalComma bool) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	if decimalComma {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	} else {
		v = strings.ReplaceAll(v, ",", "")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	return d, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, h)
}

func detectDelimiter(source string, head []byte) rune {
	if strings.EqualFold(filepath.Ext(source), ".tsv") {
		return '\t'
	}
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.IndexByte(line, '\t') >= 0 && bytes.IndexByte(line, ',') < 0 {
		return '\t'
	}
	if bytes.IndexByte(line, ';') >= 0 && bytes.IndexByte(line, ',') < 0 {
		return ';'
	}
	return ','
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
