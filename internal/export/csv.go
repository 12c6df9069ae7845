package export

import (
	"encoding/csv"
	"io"
	"strconv"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
)

const dateFormat = "2006-01-02"

// WriteCreditNoteCSV writes the credit-note rows as a semicolon-delimited
// table. Dry runs carry an extra column flagging rows whose underlying
// lines were already exported.
func WriteCreditNoteCSV(w io.Writer, result *ExportResult, dry bool) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	header := []string{
		"Kundenummer", "Varenummer", "Tekst", "Antal",
		"Enhedspris", "Total", "Fra", "Til", "Fil-id",
	}
	if dry {
		header = append(header, "Allerede eksporteret")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, line := range result.Lines {
		fileID := ""
		if line.FileID != nil {
			fileID = line.FileID.String()
		}
		record := []string{
			line.CustomerID,
			line.ItemNumber,
			line.Text,
			strconv.Itoa(line.Quantity),
			strconv.Itoa(line.UnitPrice),
			strconv.FormatInt(line.Total, 10),
			line.FromDate.Format(dateFormat),
			line.ToDate.Format(dateFormat),
			fileID,
		}
		if dry {
			record = append(record, strconv.FormatBool(line.AlreadyExported))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDebtorCSV writes one unified customer row per account of any kind.
func WriteDebtorCSV(w io.Writer, debtors []accountdomain.Debtor) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	header := []string{
		"Kundenummer", "Navn", "Telefon", "Adresse", "Postnr", "By",
		"Reg", "Konto", "Fakturamail", "CVR", "Lokation-id",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, debtor := range debtors {
		registration := ""
		if debtor.RegistrationNumber != nil {
			registration = *debtor.RegistrationNumber
		}
		account := ""
		if debtor.AccountNumber != nil {
			account = *debtor.AccountNumber
		}
		locationID := ""
		if debtor.LocationID != nil {
			locationID = strconv.FormatInt(*debtor.LocationID, 10)
		}
		record := []string{
			debtor.ExternalID,
			debtor.Name,
			debtor.Phone,
			debtor.Address,
			debtor.PostalCode,
			debtor.City,
			registration,
			account,
			debtor.InvoiceMail,
			strconv.FormatInt(debtor.CVR, 10),
			locationID,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
