package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

const (
	summarySheet  = "Summary"
	sessionsSheet = "Sessions"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// SessionHistory writes a summary sheet and one row per session.
func (g *Generator) SessionHistory(doc model.ClosingDocument) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	g.writeSummary(file, doc)

	if _, err := file.NewSheet(sessionsSheet); err != nil {
		return nil, err
	}
	if err := g.writeSessions(file, doc.Sessions); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, doc model.ClosingDocument) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	counts := map[model.SessionStatus]int{}
	for _, s := range doc.Sessions {
		counts[s.Status]++
	}

	set("A1", "Package")
	set("B1", doc.Purchase.Title)
	set("A2", "Client")
	set("B2", doc.Client.Name)
	set("A3", "Member")
	set("B3", doc.Member.Name)
	set("A4", "Status")
	set("B4", string(doc.Purchase.Status))
	set("A5", "Purchased hours")
	set("B5", doc.Purchase.TotalHours)
	set("A6", "Consumed hours")
	set("B6", doc.Purchase.ConsumedHours)
	set("A7", "Created")
	set("B7", formatDateTime(doc.Purchase.CreatedAt))

	row := 9
	set(fmt.Sprintf("A%d", row), "Session status")
	set(fmt.Sprintf("B%d", row), "Count")
	for i, status := range []model.SessionStatus{
		model.SessionScheduled,
		model.SessionCompleted,
		model.SessionCancelled,
		model.SessionNoShow,
		model.SessionRescheduled,
	} {
		set(fmt.Sprintf("A%d", row+1+i), string(status))
		set(fmt.Sprintf("B%d", row+1+i), counts[status])
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 24)
	_ = file.SetColWidth(summarySheet, "B", "B", 40)
}

func (g *Generator) writeSessions(file *excelize.File, sessions []model.PackageSession) error {
	headers := []string{"Date", "Start", "End", "Hours", "Status", "Notes", "Completed at"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = file.SetCellValue(sessionsSheet, cell, header)
	}

	for i, s := range sessions {
		row := i + 2
		values := []interface{}{
			s.SessionDate,
			s.StartTime.String(),
			s.EndTime.String(),
			s.DurationHours,
			string(s.Status),
			s.Notes,
			formatTimePtr(s.CompletedAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			_ = file.SetCellValue(sessionsSheet, cell, value)
		}
	}

	_ = file.SetColWidth(sessionsSheet, "A", "C", 12)
	_ = file.SetColWidth(sessionsSheet, "D", "E", 12)
	_ = file.SetColWidth(sessionsSheet, "F", "F", 40)
	_ = file.SetColWidth(sessionsSheet, "G", "G", 20)
	return nil
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDateTime(*t)
}
