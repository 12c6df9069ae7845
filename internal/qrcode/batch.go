package qrcode

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/esani/pantportal/internal/config"
)

// BatchFilename names the CSV file for one printed code batch, carrying the
// series key, the day, the batch size and the series counter after the batch.
func BatchFilename(seriesKey string, day time.Time, n int, count int64) string {
	return fmt.Sprintf("%s-%s_%d-codes_of_%d.csv", seriesKey, day.Format("2006-01-02"), n, count)
}

// WriteBatchCSV writes one row per generated code with the printable QR URL,
// the bare id and the control code split out for the print shop.
func WriteBatchCSV(w io.Writer, qr config.QRConfig, codes []string) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write([]string{"QR-kode", "Id", "Kontrolkode"}); err != nil {
		return err
	}
	for _, code := range codes {
		idAndControl := code[1:]
		row := []string{
			qr.URLPrefix + code,
			idAndControl[:qr.IDLength],
			idAndControl[qr.IDLength:],
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
