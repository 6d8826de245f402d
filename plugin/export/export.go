// Package export renders study plans as xlsx workbooks.
package export

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/hrygo/wordloop/plugin/srs"
	"github.com/hrygo/wordloop/server/timezone"
)

const (
	PlanSheet    = "Plan"
	SummarySheet = "Summary"

	// ContentType is the MIME type of the rendered workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	planHeader = []any{
		"Date", "Item", "Level", "Difficulty", "Days Since Review",
		"Required Interval", "Overdue Days", "Priority", "Difficult",
	}
	summaryHeader = []any{
		"Date", "Items", "Estimated Minutes", "Easy", "Medium", "Hard",
	}
)

// PlanWorkbook builds a workbook with one Plan row per (day, item) and one
// Summary row per day. The caller must Close the returned file.
func PlanWorkbook(plans []srs.DayPlan) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", PlanSheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to name plan sheet")
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create summary sheet")
	}

	if err := writePlanSheet(f, plans); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummarySheet(f, plans); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WritePlan renders plans as xlsx into w.
func WritePlan(w io.Writer, plans []srs.DayPlan) error {
	f, err := PlanWorkbook(plans)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}

func writePlanSheet(f *excelize.File, plans []srs.DayPlan) error {
	if err := writeHeader(f, PlanSheet, planHeader); err != nil {
		return err
	}
	row := 2
	for _, plan := range plans {
		date := plan.Date.Format(timezone.DateLayout)
		for _, item := range plan.Items {
			values := []any{
				date,
				item.Record.ItemID,
				item.Record.MasteryLevel,
				string(srs.DifficultyOf(item.Record.MasteryLevel)),
				item.DaysSinceReview,
				item.RequiredInterval,
				item.OverdueDays,
				item.Priority,
				item.Record.IsDifficult,
			}
			if err := setRow(f, PlanSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(PlanSheet, "A", "B", 16)
}

func writeSummarySheet(f *excelize.File, plans []srs.DayPlan) error {
	if err := writeHeader(f, SummarySheet, summaryHeader); err != nil {
		return err
	}
	for i, plan := range plans {
		values := []any{
			plan.Date.Format(timezone.DateLayout),
			len(plan.Items),
			plan.EstimatedTimeMinutes,
			plan.Histogram.Easy,
			plan.Histogram.Medium,
			plan.Histogram.Hard,
		}
		if err := setRow(f, SummarySheet, i+2, values); err != nil {
			return err
		}
	}
	return f.SetColWidth(SummarySheet, "A", "C", 16)
}

func writeHeader(f *excelize.File, sheet string, header []any) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return errors.Wrap(err, "failed to resolve header range")
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &values); err != nil {
		return errors.Wrapf(err, "failed to write %s row %d", sheet, row)
	}
	return nil
}
