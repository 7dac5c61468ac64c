package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"hrminsights/internal/domain/dashboards"
)

const sheetName = "Report"

// Rendered is an export file body.
type Rendered struct {
	Body        []byte
	ContentType string
	Extension   string
}

// Render writes table in the requested format.
func Render(table dashboards.Table, format string) (Rendered, error) {
	switch format {
	case FormatCSV:
		body, err := renderCSV(table)
		return Rendered{Body: body, ContentType: "text/csv; charset=utf-8", Extension: "csv"}, err
	case FormatXLSX:
		body, err := renderXLSX(table)
		return Rendered{Body: body, ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Extension: "xlsx"}, err
	case FormatPDF:
		body, err := renderPDF(table)
		return Rendered{Body: body, ContentType: "application/pdf", Extension: "pdf"}, err
	}
	return Rendered{}, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
}

// ContentType maps a format to its MIME type.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

func renderCSV(table dashboards.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(table dashboards.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for col, name := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return nil, err
		}
	}
	if len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err := f.SetCellStyle(sheetName, "A1", last, header); err != nil {
			return nil, err
		}
	}

	for i, row := range table.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, cellValue(value)); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cellValue stores plain numbers as numbers so spreadsheets can sum them.
func cellValue(v string) any {
	if n, err := strconv.ParseFloat(v, 64); err == nil && !strings.ContainsAny(v, "eEx") {
		return n
	}
	return v
}

func renderPDF(table dashboards.Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(table.Title, true)
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, table.Title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated "+table.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(9)

	if len(table.Columns) == 0 {
		return pdfBytes(pdf)
	}
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := (pageWidth - left - right) / float64(len(table.Columns))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range table.Columns {
		pdf.CellFormat(width, 7, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, row := range table.Rows {
		for _, value := range row {
			pdf.CellFormat(width, 6, tr(fitText(pdf, value, width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdfBytes(pdf)
}

// fitText trims value until it fits in a cell of width mm.
func fitText(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func pdfBytes(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
