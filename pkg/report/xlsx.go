// Package report exports indicator tables for people who work in spreadsheets.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// SheetName is the sheet holding the indicator table.
const SheetName = "Indicateurs"

const valueDecimals = 2

var errWriteWorkbook = errors.New("failed to write workbook")

// Header is the first row of the exported sheet.
var Header = []interface{}{
	"Période",
	"Temps d'ouverture (h)",
	"TA (h)",
	"NB",
	"MTBF (h)",
	"MTTR (h)",
	"Disponibilité (%)",
	"Ratio d'arrêt (%)",
}

// WriteMetricsXLSX writes rows, in the given order, as a one-sheet workbook.
func WriteMetricsXLSX(w io.Writer, rows []models.MetricsRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("%w: %w", errWriteWorkbook, err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("%w: %w", errWriteWorkbook, err)
	}

	for i := range rows {
		r := &rows[i]

		cells := []interface{}{
			r.Period,
			round(r.OpenTime),
			round(r.TotalDownTime),
			r.EventCount,
			round(r.MTBF),
			round(r.MTTR),
			round(r.AvailabilityPct),
			round(r.DowntimeRatioPct),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %w", errWriteWorkbook, err)
		}

		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("%w: %w", errWriteWorkbook, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: %w", errWriteWorkbook, err)
	}

	return nil
}

func round(v float64) float64 {
	r, err := stats.Round(v, valueDecimals)
	if err != nil {
		return 0
	}

	return r
}
