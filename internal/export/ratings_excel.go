package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Spok95/face-rating-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
	// Numeric — номера колонок (с 0), которые пишутся числами.
	Numeric map[int]bool
}

// Workbook — xlsx с несколькими листами из SheetSpec.
type Workbook struct {
	File *excelize.File
}

func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook: no sheets")
	}
	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			// стандартный Sheet1 переименовываем в первый лист
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.Title, err)
		}
		if err := writeSheet(f, s); err != nil {
			return nil, err
		}
		if err := ApplyDefaultExcelFormatting(f, s.Title); err != nil {
			return nil, fmt.Errorf("format %s: %w", s.Title, err)
		}
	}
	return &Workbook{File: f}, nil
}

func writeSheet(f *excelize.File, s SheetSpec) error {
	if err := f.SetSheetRow(s.Title, "A1", &s.Header); err != nil {
		return fmt.Errorf("header %s: %w", s.Title, err)
	}
	for r, row := range s.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = cellValue(v, s.Numeric[i])
		}
		cell := fmt.Sprintf("A%d", r+2)
		if err := f.SetSheetRow(s.Title, cell, &cells); err != nil {
			return fmt.Errorf("row %s: %w", cell, err)
		}
	}
	return nil
}

// cellValue — числа пишем числами, чтобы в Excel работали сортировка и формулы.
func cellValue(v string, numeric bool) any {
	if !numeric {
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

func (w *Workbook) Write(out io.Writer) error { return w.File.Write(out) }

func BuildWorkbookFilename(now time.Time) string {
	return sanitizeFileName(fmt.Sprintf("face_ratings_%s.xlsx", now.Format("2006-01-02_15-04")))
}

// RatingsWorkbook — полная выгрузка: журнал, только валидные, сводки по картинкам и участникам.
func RatingsWorkbook(rs []models.Rating, images []models.ImageStats, users []models.UserStats) (*Workbook, error) {
	return NewWorkbook([]SheetSpec{
		{Title: "ratings", Header: RatingsHeader, Rows: ratingRows(rs), Numeric: numericCols(2)},
		{Title: "valid", Header: RatingsHeader, Rows: ratingRows(models.ValidOnly(rs)), Numeric: numericCols(2)},
		{Title: "images", Header: imageHeader, Rows: imageRows(images), Numeric: numericCols(1, 2, 3, 4, 5, 6, 7, 8)},
		{Title: "users", Header: userHeader, Rows: userRows(users), Numeric: numericCols(1, 2, 3, 4, 5)},
	})
}

func numericCols(idx ...int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, i := range idx {
		m[i] = true
	}
	return m
}

var imageHeader = []string{"image_id", "total", "valid", "skips", "flags", "avg", "min", "max", "controversy"}

var userHeader = []string{"participant_identifier", "total", "valid", "skips", "flags", "avg", "first", "last"}

func ratingRows(rs []models.Rating) [][]string {
	out := make([][]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, ratingRecord(r))
	}
	return out
}

func imageRows(stats []models.ImageStats) [][]string {
	out := make([][]string, 0, len(stats))
	for _, s := range stats {
		contr := ""
		if c, ok := s.Controversy(); ok {
			contr = FormatOptional(&c)
		}
		out = append(out, []string{
			s.ImageID,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Valid),
			strconv.Itoa(s.Skips),
			strconv.Itoa(s.Flags),
			FormatOptional(s.Mean),
			FormatOptional(s.Min),
			FormatOptional(s.Max),
			contr,
		})
	}
	return out
}

func userRows(users []models.UserStats) [][]string {
	out := make([][]string, 0, len(users))
	for _, u := range users {
		out = append(out, []string{
			u.Participant,
			strconv.Itoa(u.Total),
			strconv.Itoa(u.Valid),
			strconv.Itoa(u.Skips),
			strconv.Itoa(u.Flags),
			FormatOptional(u.Mean),
			u.First.UTC().Format(time.RFC3339),
			u.Last.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// FormatOptional — два знака после запятой; пустая строка, если значения нет.
func FormatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
