package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vstudent/schedule-agent/internal/domain"
)

const sheetName = "Schedules"

// Workbook renders the joined schedules as a spreadsheet, one row per entry,
// sorted however the caller sorted them.
func Workbook(schedules []*domain.ScheduleJoined) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"Date", "Course", "Tag", "Description"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("export workbook: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("export workbook: %w", err)
		}
	}

	for row, s := range schedules {
		course := s.CourseID
		if s.Course != nil {
			course = s.Course.Name
		}
		tag := s.TagID
		if s.Tag != nil {
			tag = s.Tag.Title
		}
		values := []any{s.Date.Format("2006-01-02 15:04"), course, tag, s.Description}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("export workbook: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("export workbook: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export workbook: %w", err)
	}
	return buf, nil
}
