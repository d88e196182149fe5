package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/username/leave-tracker/internal/stats"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrNoRows is returned when there is nothing to export
var ErrNoRows = errors.New("no rows to export")

const (
	// SheetName is the title of the exported worksheet
	SheetName = "请假记录"

	headerColor   = "4472C4"
	weekdayColor  = "D9E1F2"
	saturdayColor = "FFE699"
	sundayColor   = "FFC7CE"

	checkMark  = "✓"
	lineHeight = 15.0
)

// ProgressFunc is called after each data row with the rows written so far
type ProgressFunc func(done, total int)

// Writer renders stats rows into an xlsx workbook
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a workbook writer
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

type styles struct {
	header   int
	weekday  int
	saturday int
	sunday   int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	s := &styles{header: header}
	for _, def := range []struct {
		color string
		id    *int
	}{
		{weekdayColor, &s.weekday},
		{saturdayColor, &s.saturday},
		{sundayColor, &s.sunday},
	} {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{def.color}, Pattern: 1},
			Border:    border,
			Alignment: center,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create row style: %w", err)
		}
		*def.id = id
	}
	return s, nil
}

func (s *styles) forWeekday(label string) int {
	switch label {
	case "周六":
		return s.saturday
	case "周日":
		return s.sunday
	default:
		return s.weekday
	}
}

// Build renders rows into a new workbook. A non-empty person selects person
// mode: ✓ marks in the type columns and a 合计 summary row.
func (w *Writer) Build(ctx context.Context, rows []stats.Row, person string, progress ProgressFunc) (*excelize.File, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
		}
	}()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	sheet = SheetName

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	personMode := person != ""
	subjectHeader := "人数"
	subjectWidth := 50.0
	if personMode {
		subjectHeader = "姓名"
		subjectWidth = 15
	}

	if err := setRow(f, sheet, 1, []string{"日期", "星期", subjectHeader, "全天", "半天"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", st.header); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for _, col := range []struct {
		name  string
		width float64
	}{
		{"A", 15}, {"B", 10}, {"C", subjectWidth}, {"D", 50}, {"E", 50},
	} {
		if err := f.SetColWidth(sheet, col.name, col.name, col.width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	fullCount, halfCount := 0, 0
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rowNum := i + 2
		values := []string{row.Date, row.WeekdayLabel, row.SubjectLabel, "", ""}
		if personMode {
			if len(row.FullDayParticipants) > 0 {
				values[3] = checkMark
				fullCount++
			}
			if len(row.HalfDayParticipants) > 0 {
				values[4] = checkMark
				halfCount++
			}
		} else {
			values[3] = strings.Join(row.FullDayParticipants, ", ")
			values[4] = strings.Join(row.HalfDayParticipants, ", ")
		}

		if err := setRow(f, sheet, rowNum, values); err != nil {
			return nil, err
		}
		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		end, _ := excelize.CoordinatesToCellName(5, rowNum)
		if err := f.SetCellStyle(sheet, start, end, st.forWeekday(row.WeekdayLabel)); err != nil {
			return nil, fmt.Errorf("failed to style row %d: %w", rowNum, err)
		}
		if lines := estimateLines(values); lines > 1 {
			if err := f.SetRowHeight(sheet, rowNum, lineHeight*float64(lines)); err != nil {
				return nil, fmt.Errorf("failed to set row height: %w", err)
			}
		}

		if progress != nil {
			progress(i+1, len(rows))
		}
	}

	if personMode {
		rowNum := len(rows) + 2
		summary := []string{"合计", "", person, fmt.Sprintf("%d次", fullCount), fmt.Sprintf("%d次", halfCount)}
		if err := setRow(f, sheet, rowNum, summary); err != nil {
			return nil, err
		}
		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		end, _ := excelize.CoordinatesToCellName(5, rowNum)
		if err := f.SetCellStyle(sheet, start, end, st.header); err != nil {
			return nil, fmt.Errorf("failed to style summary row: %w", err)
		}
	}

	ok = true
	return f, nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if v == "" {
			continue
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", cell, err)
		}
	}
	return nil
}

// estimateLines approximates the wrapped line count of the tallest cell:
// about 20 characters per line in the wide columns, 10 in the narrow ones
func estimateLines(values []string) int {
	lines := 1
	for col, v := range values {
		perLine := 10
		if col >= 2 {
			perLine = 20
		}
		n := (utf8.RuneCountInString(v) + perLine - 1) / perLine
		if n > lines {
			lines = n
		}
	}
	return lines
}

// Write builds the workbook and saves it to path
func (w *Writer) Write(ctx context.Context, path string, rows []stats.Row, person string, progress ProgressFunc) error {
	f, err := w.Build(ctx, rows, person, progress)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("Workbook exported",
		zap.String("file", path),
		zap.Int("rows", len(rows)),
		zap.Bool("person_mode", person != ""))
	return nil
}

// Start runs Write in the background. The returned channel receives the
// result and is then closed.
func (w *Writer) Start(ctx context.Context, path string, rows []stats.Row, person string, progress ProgressFunc) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- w.Write(ctx, path, rows, person, progress)
	}()
	return done
}
