package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"localpro/internal/domain"
	"localpro/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const scheduleSheetName = "Schedule"

// Exporter writes a provider's schedule for a period into an Excel file:
// weekday columns across the top, one row per slot window, bookings listed
// in the intersecting cells with a fill showing how full the window is.
type Exporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{repo: repo, path: path, logger: logger}
}

// ScheduleToExcel renders the provider's bookings between startDate and
// endDate inclusive and returns the written file path.
func (e *Exporter) ScheduleToExcel(ctx context.Context, providerID int64, startDate, endDate time.Time) (string, error) {
	if endDate.Before(startDate) {
		return "", fmt.Errorf("end date precedes start date")
	}
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	bookings, err := e.repo.GetBookingsByDateRange(ctx, providerID, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}
	slots, err := e.repo.ListSlots(ctx, providerID)
	if err != nil {
		return "", fmt.Errorf("error getting slots: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(scheduleSheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(scheduleSheetName, "A1", fmt.Sprintf("Schedule: %s - %s",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout)))

	dateCols := e.writeDateHeaders(f, startDate, endDate)
	e.writeSlotHeaders(f, slots)
	e.writeBookingCells(f, slots, bookings, dateCols)

	_ = f.SetColWidth(scheduleSheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(scheduleSheetName, string(i), string(i), 20)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(scheduleSheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%d_%s_to_%s.xlsx",
		providerID, startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Int64("provider_id", providerID).Str("file_path", filePath).
		Msg("schedule exported to Excel")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, startDate, endDate time.Time) map[string]int {
	col := 2
	dateCols := make(map[string]int)
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for current := models.DateOnly(startDate); !current.After(endDate); current = current.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(scheduleSheetName, cell, current.Format("Mon 02.01"))
		_ = f.SetCellStyle(scheduleSheetName, cell, cell, headerStyle)
		dateCols[current.Format(models.DateLayout)] = col
		col++
	}
	return dateCols
}

func (e *Exporter) writeSlotHeaders(f *excelize.File, slots []*models.AvailabilitySlot) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, slot := range slots {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		label := fmt.Sprintf("%s %s (max %d)",
			time.Weekday(slot.DayOfWeek).String()[:3], slot.Window(), slot.MaxBookings)
		_ = f.SetCellValue(scheduleSheetName, cell, label)
		_ = f.SetCellStyle(scheduleSheetName, cell, cell, style)
	}
}

func (e *Exporter) writeBookingCells(
	f *excelize.File,
	slots []*models.AvailabilitySlot,
	bookings []*models.Booking,
	dateCols map[string]int,
) {
	byDate := make(map[string][]*models.Booking)
	for _, b := range bookings {
		key := b.Date.Format(models.DateLayout)
		byDate[key] = append(byDate[key], b)
	}

	for dateKey, col := range dateCols {
		date, err := time.Parse(models.DateLayout, dateKey)
		if err != nil {
			continue
		}
		for i, slot := range slots {
			if slot.DayOfWeek != int(date.Weekday()) || !slot.Active {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, i+3)

			var cellValue string
			active := 0
			for _, b := range byDate[dateKey] {
				if !slot.Window().Overlaps(b.TimeRange()) {
					continue
				}
				cellValue += fmt.Sprintf("#%d %s %s\n", b.ID, b.TimeRange(), b.Status)
				if models.CountsAgainstCapacity(b.Status) {
					active++
				}
			}
			if cellValue == "" {
				cellValue = fmt.Sprintf("Free\n\n0/%d", slot.MaxBookings)
			} else {
				cellValue += fmt.Sprintf("\n%d/%d", active, slot.MaxBookings)
			}
			_ = f.SetCellValue(scheduleSheetName, cell, cellValue)

			if styleID, err := e.cellStyle(f, active, slot.MaxBookings); err == nil {
				_ = f.SetCellStyle(scheduleSheetName, cell, cell, styleID)
			}
		}
	}
}

// cellStyle fills the cell red when the window is full, yellow when partly
// booked and plain white when empty.
func (e *Exporter) cellStyle(f *excelize.File, active, max int) (int, error) {
	color := "#FFFFFF"
	switch {
	case active >= max:
		color = "#FFC7CE"
	case active > 0:
		color = "#FFEB9C"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
