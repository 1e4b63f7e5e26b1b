package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	summarySheet = "Summary"
	payersSheet  = "Payers"
	generalLabel = "General"
	dateLayout   = "2006-01-02"
)

var payerHeaders = []string{
	"Payer ID", "Payer", "Application Status", "Total Tasks",
	"Pending", "In Progress", "Blocked", "Completed", "Not Applicable",
	"Overdue", "Completion %", "Submitted", "Expected Decision", "Approved", "Effective",
}

// ExcelExporter renders a provider progress report as an XLSX workbook
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Write renders report into w
func (e *ExcelExporter) Write(report *entity.ProgressReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(payersSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	e.fillSummary(f, report, bold)
	if err := e.fillPayers(f, report, bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Progress workbook exported",
		zap.String("provider_id", report.ProviderID),
		zap.Int("payer_groups", len(report.PerPayer)))
	return nil
}

// Bytes renders report into memory
func (e *ExcelExporter) Bytes(report *entity.ProgressReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(report, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *ExcelExporter) fillSummary(f *excelize.File, report *entity.ProgressReport, bold int) {
	o := report.Overall
	rows := [][]interface{}{
		{"Provider", report.ProviderID},
		{"Generated At", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total Payers", o.TotalPayers},
		{"Total Tasks", o.TotalTasks},
		{"Completed Tasks", o.CompletedTasks},
		{"Overdue Tasks", o.OverdueTasks},
		{"Approved Payers", o.ApprovedPayers},
		{"Pending Approval Payers", o.PendingApprovalPayers},
		{"Completion %", o.CompletionPercentage},
	}
	for i, row := range rows {
		e.setRow(f, summarySheet, i+1, row)
	}
	e.setStyle(f, summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold)
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}
}

func (e *ExcelExporter) fillPayers(f *excelize.File, report *entity.ProgressReport, bold int) error {
	header := make([]interface{}, len(payerHeaders))
	for i, h := range payerHeaders {
		header[i] = h
	}
	e.setRow(f, payersSheet, 1, header)

	last, err := excelize.CoordinatesToCellName(len(payerHeaders), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve header range: %w", err)
	}
	e.setStyle(f, payersSheet, "A1", last, bold)

	for i, p := range report.PerPayer {
		e.setRow(f, payersSheet, i+2, payerRow(p))
	}

	if err := f.SetPanes(payersSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}
	return nil
}

func payerRow(p entity.PayerProgress) []interface{} {
	name := p.PayerName
	if p.PayerID == "" {
		name = generalLabel
	}
	row := []interface{}{
		p.PayerID, name, string(p.ApplicationStatus), p.TotalTasks,
		p.StatusCounts[entity.TaskStatusPending],
		p.StatusCounts[entity.TaskStatusInProgress],
		p.StatusCounts[entity.TaskStatusBlocked],
		p.StatusCounts[entity.TaskStatusCompleted],
		p.StatusCounts[entity.TaskStatusNotApplicable],
		p.OverdueTasks, p.CompletionPercentage,
	}
	var d entity.ApplicationDateStamp
	if p.ApplicationDates != nil {
		d = *p.ApplicationDates
	}
	return append(row, formatDate(d.Submitted), formatDate(d.ExpectedDecision), formatDate(d.Approved), formatDate(d.Effective))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// setRow writes a row, logging rather than failing on a bad cell
func (e *ExcelExporter) setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err == nil {
		err = f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		e.logger.Warn("Failed to set row",
			zap.String("sheet", sheet),
			zap.Int("row", row),
			zap.Error(err))
	}
}

func (e *ExcelExporter) setStyle(f *excelize.File, sheet, from, to string, style int) {
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		e.logger.Warn("Failed to set cell style", zap.String("sheet", sheet), zap.Error(err))
	}
}
