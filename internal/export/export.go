package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"hotelbook/internal/models"
)

const (
	bookingsSheet  = "Bookings"
	occupancySheet = "Occupancy"
	maxGridDays    = 100

	colorPaid   = "#C6EFCE"
	colorUnpaid = "#FFEB9C"
	colorHeader = "#DDEBF7"
	colorRoom   = "#E2EFDA"
)

// Report is the data behind one workbook: a bookings list and a room by night grid.
type Report struct {
	From     models.Date
	To       models.Date
	Rooms    []models.Room
	Bookings []models.BookingView
}

var listHeaders = []string{
	"ID", "Guest", "Room", "Room Type", "Price/Night", "Check-in", "Check-out",
	"Nights", "Total", "Status", "Paid", "Origin", "Created At",
}

// Write renders the report as an XLSX workbook into w.
func Write(w io.Writer, r Report) error {
	if r.From.IsZero() || r.To.IsZero() || !r.From.Before(r.To) {
		return errors.New("export period must have from before to")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeList(f, r); err != nil {
		return err
	}
	if _, err := f.NewSheet(occupancySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeGrid(f, r); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveFile writes the report to dir and returns the file path.
func SaveFile(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r.From, r.To))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := Write(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func FileName(from, to models.Date) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from, to)
}

func writeList(f *excelize.File, r Report) error {
	for i, h := range listHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingsSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(listHeaders))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", header)

	for i, v := range r.Bookings {
		b := v.Booking
		paid := "no"
		if b.Paid {
			paid = "yes"
		}
		row := []interface{}{
			b.ID, v.CustomerName, b.RoomNumber, v.RoomType, v.RoomPrice.Float(),
			b.CheckIn.String(), b.CheckOut.String(), b.Nights(),
			(v.RoomPrice * models.Money(b.Nights())).Float(),
			string(b.Status), paid, string(b.Origin), b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return fmt.Errorf("write booking %s: %w", b.ID, err)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 25)
	_ = f.SetColWidth(bookingsSheet, "C", lastCol, 14)
	return nil
}

func writeGrid(f *excelize.File, r Report) error {
	days := r.From.DaysUntil(r.To)
	if days > maxGridDays {
		days = maxGridDays
	}

	_ = f.SetCellValue(occupancySheet, "A1", fmt.Sprintf("Period: %s - %s",
		r.From.Time().Format("02.01.2006"), r.To.Time().Format("02.01.2006")))
	title, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(occupancySheet, "A1", "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(days + 1)
	_ = f.MergeCell(occupancySheet, "A1", lastCol+"1")

	header, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for d := 0; d < days; d++ {
		cell, _ := excelize.CoordinatesToCellName(d+2, 2)
		_ = f.SetCellValue(occupancySheet, cell, r.From.AddDays(d).Time().Format("02.01"))
		_ = f.SetCellStyle(occupancySheet, cell, cell, header)
	}

	roomStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorRoom}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	paidStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorPaid}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	unpaidStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorUnpaid}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for i, room := range r.Rooms {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		label := fmt.Sprintf("%s (%s)", room.Number, room.Type)
		if !room.InService {
			label += " - out of service"
		}
		_ = f.SetCellValue(occupancySheet, cell, label)
		_ = f.SetCellStyle(occupancySheet, cell, cell, roomStyle)

		for d := 0; d < days; d++ {
			night := r.From.AddDays(d)
			b := occupant(r.Bookings, room.Number, night)
			if b == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(d+2, row)
			_ = f.SetCellValue(occupancySheet, cell, b.CustomerName)
			style := unpaidStyle
			if b.Booking.Paid {
				style = paidStyle
			}
			_ = f.SetCellStyle(occupancySheet, cell, cell, style)
		}
	}

	_ = f.SetColWidth(occupancySheet, "A", "A", 25)
	if days > 0 {
		_ = f.SetColWidth(occupancySheet, "B", lastCol, 14)
	}
	return nil
}

// occupant returns the active booking holding room on the given night.
func occupant(bookings []models.BookingView, room string, night models.Date) *models.BookingView {
	for i := range bookings {
		b := &bookings[i]
		if b.Booking.RoomNumber == room && b.Booking.IsActive() && b.Booking.Overlaps(night, night.AddDays(1)) {
			return b
		}
	}
	return nil
}
