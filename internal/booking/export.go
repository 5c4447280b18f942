package booking

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bookings"

var exportHeaders = []string{
	"Created", "Full Name", "Email", "Phone Number", "Rental Company", "Confirmation Number",
	"Pickup Date", "Pickup Time", "Pickup Location", "Dropoff Date", "Dropoff Time", "Dropoff Location",
	"Total", "MCO", "Payable at Pickup", "Modification Fees", "Status",
}

// writeWorkbook renders bookings as a single-sheet XLSX workbook.
func writeWorkbook(bookings []*Booking, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	_ = f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle)
	_ = f.SetColWidth(exportSheet, "A", lastCol, 18)
	_ = f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, b := range bookings {
		fees := make([]string, len(b.ModificationFee))
		for j, fee := range b.ModificationFee {
			fees[j] = fee.Charge
		}
		row := []any{
			b.CreatedAt.UTC().Format("2006-01-02 15:04"),
			b.FullName, b.Email, b.PhoneNumber, b.RentalCompany, b.ConfirmationNumber,
			b.PickupDate, b.PickupTime, b.PickupLocation, b.DropoffDate, b.DropoffTime, b.DropoffLocation,
			b.Total, b.MCO, b.PayableAtPickup, strings.Join(fees, ", "), string(b.Status),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
