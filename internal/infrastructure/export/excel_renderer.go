package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/promotion-approval/internal/domain/entity"
)

// SheetName is the worksheet holding the exported requests
const SheetName = "Promotions"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"ID", "Employee", "Requester", "Requester Role",
	"Target Level", "Target Position", "Raise %",
	"Status", "Next Role",
	"Manager Approver", "Manager Approved At",
	"GM Approver", "GM Approved At",
	"HR Approver", "HR Approved At",
	"Rejected By", "Rejection Reason", "Rejected At",
	"Created At", "Updated At",
}

// ExcelRenderer writes promotion requests into a single-sheet workbook
type ExcelRenderer struct {
	logger *zap.Logger
}

// NewExcelRenderer creates a new ExcelRenderer
func NewExcelRenderer(logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{logger: logger}
}

// ContentType returns the MIME type of the rendered workbook
func (r *ExcelRenderer) ContentType() string {
	return xlsxContentType
}

// RenderPromotions returns the workbook bytes: a bold header row then one row per request
func (r *ExcelRenderer) RenderPromotions(views []*entity.PromotionView) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			r.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	r.styleHeader(f)

	for i, v := range views {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := rowFor(v)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write request %s: %w", v.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Workbook rendered", zap.Int("rows", len(views)))
	return buf.Bytes(), nil
}

// styleHeader is cosmetic; failures are logged, not returned
func (r *ExcelRenderer) styleHeader(f *excelize.File) {
	lastCol, _ := excelize.ColumnNumberToName(len(header))

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		err = f.SetCellStyle(SheetName, "A1", lastCol+"1", style)
	}
	if err == nil {
		err = f.SetColWidth(SheetName, "A", lastCol, 20)
	}
	if err == nil {
		err = f.SetPanes(SheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	if err != nil {
		r.logger.Warn("Failed to style header row", zap.Error(err))
	}
}

func rowFor(v *entity.PromotionView) []interface{} {
	nextRole := ""
	if v.NextRole != nil {
		nextRole = v.NextRole.String()
	}

	var rejectedBy, reason, rejectedAt string
	if v.Rejection != nil {
		rejectedBy = fmt.Sprintf("%s (%s)", v.Rejection.ByID, v.Rejection.ByRole)
		reason = v.Rejection.Reason
		rejectedAt = formatTime(&v.Rejection.At)
	}

	return []interface{}{
		v.ID, v.EmployeeID, v.RequesterID, v.RequesterRole.String(),
		string(v.TargetLevel), v.TargetPosition, v.RaisePercentage,
		v.Status.String(), nextRole,
		v.Manager.ApproverID, formatTime(v.Manager.ApprovedAt),
		v.GM.ApproverID, formatTime(v.GM.ApprovedAt),
		v.HR.ApproverID, formatTime(v.HR.ApprovedAt),
		rejectedBy, reason, rejectedAt,
		formatTime(&v.CreatedAt), formatTime(&v.UpdatedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
