package export

import (
	"fmt"
	"io"

	"autoservice/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Заявки"

var headers = []string{
	"ID", "Дата", "Время", "Телефон", "Госномер", "VIN", "Услуга", "Цена", "Статус",
	"Комментарий клиента", "Заметки администратора", "Создана", "Обновлена",
}

var statusFill = map[string]string{
	models.StatusPending:  "#FFF2CC",
	models.StatusApproved: "#E2EFDA",
	models.StatusDeclined: "#F8CBAD",
}

// WriteBookings writes bookings as a single-sheet .xlsx workbook to w.
func WriteBookings(w io.Writer, bookings []models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle)

	statusStyles := make(map[string]int, len(statusFill))
	for status, color := range statusFill {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("error creating style: %w", err)
		}
		statusStyles[status] = style
	}

	for i := range bookings {
		b := &bookings[i]
		row := i + 2
		values := []interface{}{
			b.ID,
			b.BookingDate,
			b.BookingTime,
			b.PhoneNumber,
			b.CarPlate,
			b.CarVIN,
			b.ServiceType,
			b.Price,
			b.Status,
			b.CustomerNotes,
			b.AdminNotes,
			b.CreatedAt.Format("02.01.2006 15:04"),
			b.UpdatedAt.Format("02.01.2006 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := statusStyles[b.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(9, row)
			_ = f.SetCellStyle(SheetName, cell, cell, style)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38)
	_ = f.SetColWidth(SheetName, "B", lastCol, 18)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}
