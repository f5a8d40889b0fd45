package extract

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var header = []string{"Region", "Location", "Price", "Post Prices"}

// WriteCSV writes rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "extract: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Region, r.Location, r.Price, r.PostPrices}); err != nil {
			return eris.Wrap(err, "extract: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "extract: flush csv")
}

// WriteXLSX writes rows to a single-sheet workbook at path.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Prices")
	if err != nil {
		return eris.Wrap(err, "extract: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().Value = h
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().Value = r.Region
		row.AddCell().Value = r.Location
		row.AddCell().Value = r.Price
		row.AddCell().Value = r.PostPrices
	}

	return eris.Wrapf(f.Save(path), "extract: save %s", path)
}
