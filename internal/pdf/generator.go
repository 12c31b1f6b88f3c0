package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

// Generator renders package closing summaries with the core Helvetica font.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) ClosingReport(doc model.ClosingDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Package closing summary", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	title := safeValue(doc.Purchase.Title)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s (%s)", title, doc.Purchase.ID)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Closed on %s", formatDate(doc.Purchase.CompletedAt)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	partyBlock(pdf, g.fontName, tr, "Client", doc.Client.Name, doc.Client.Email)
	pdf.Ln(2)
	partyBlock(pdf, g.fontName, tr, "Member", doc.Member.Name, doc.Member.Email)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Hours", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Purchased: %s h", formatHours(doc.Purchase.TotalHours)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Consumed: %s h", formatHours(doc.Purchase.ConsumedHours)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Unused: %s h", formatHours(doc.Purchase.TotalHours-doc.Purchase.ConsumedHours)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Sessions", "", 1, "L", false, 0, "")
	headers := []string{"Date", "Start", "End", "Hours", "Status"}
	colWidths := []float64{40, 30, 30, 30, 50}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)
	for _, session := range doc.Sessions {
		drawTableRow(pdf, g.fontName, []string{
			session.SessionDate,
			session.StartTime.String(),
			session.EndTime.String(),
			formatHours(session.DurationHours),
			string(session.Status),
		}, colWidths, false)
	}
	if len(doc.Sessions) == 0 {
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 8, "No sessions were booked.", "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Completion report", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	report := ""
	if doc.Purchase.ClosingReport != nil {
		report = *doc.Purchase.ClosingReport
	}
	pdf.MultiCell(0, 6, tr(safeValue(report)), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func partyBlock(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, title, name, email string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.MultiCell(0, 5, tr(safeValue(name)), "", "L", false)
	pdf.MultiCell(0, 5, tr(safeValue(email)), "", "L", false)
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i == 3 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatHours(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
