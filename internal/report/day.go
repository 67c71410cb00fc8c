// Package report builds spreadsheet exports of the booking ledger.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/timegrid"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheet       = "Bookings"
)

var header = []any{"Booking", "Hall", "Slot", "Name", "Phone", "Add-ons", "Price"}

// Day lays out the confirmed bookings of one date, one row per booking,
// followed by a total row. bookings are expected in hall, start order.
func Day(date string, halls []domain.Hall, bookings []domain.Booking) (*excelize.File, error) {
	titles := make(map[string]string, len(halls))
	for _, h := range halls {
		titles[h.ID] = h.Title
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellValue(sheet, "A1", "Bookings on "+date); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		f.Close()
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	}); err == nil {
		_ = f.SetCellStyle(sheet, "A2", "G2", style)
	}

	row := 3
	var total int64
	for _, b := range bookings {
		hall := b.HallID
		if t := titles[b.HallID]; t != "" {
			hall = fmt.Sprintf("%s (%s)", b.HallID, t)
		}
		names := make([]string, 0, len(b.Addons))
		for _, a := range b.Addons {
			names = append(names, a.Name)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{
			b.ID,
			hall,
			timegrid.MinutesToRange(b.StartMin, b.EndMin-b.StartMin),
			b.Name,
			b.Phone,
			strings.Join(names, ", "),
			b.Price,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			f.Close()
			return nil, err
		}
		total += b.Price
		row++
	}

	label, _ := excelize.CoordinatesToCellName(6, row)
	sum, _ := excelize.CoordinatesToCellName(7, row)
	_ = f.SetCellValue(sheet, label, "Total")
	_ = f.SetCellValue(sheet, sum, total)
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "F", 16)
	return f, nil
}
