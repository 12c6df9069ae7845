package source

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodClearingFile = `CLEARING;20240201;20240229
Lokation;Serienummer;Dato;Stregkode;Antal
1234;RVM-001;20240203;5712345678901;120
1234;RVM-001;20240204;5798765432109;80
5678;RVM-002;20240205;5712345678901;44
COUNT;5
`

func TestParseClearing(t *testing.T) {
	file, err := ParseClearing(strings.NewReader(goodClearingFile))
	require.NoError(t, err)

	assert.Equal(t, "CLEARING", file.Tag)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), file.FromDate)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), file.ToDate)
	require.Len(t, file.Lines, 3)

	first := file.Lines[0]
	assert.Equal(t, "1234", first.LocationID)
	assert.Equal(t, "RVM-001", first.Serial)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "5712345678901", first.Barcode)
	assert.Equal(t, 120, first.Count)
}

func TestParseClearingHandlesCRLF(t *testing.T) {
	crlf := strings.ReplaceAll(goodClearingFile, "\n", "\r\n")
	file, err := ParseClearing(strings.NewReader(crlf))
	require.NoError(t, err)
	assert.Len(t, file.Lines, 3)
}

func TestParseClearingTrailerMismatch(t *testing.T) {
	bad := strings.Replace(goodClearingFile, "COUNT;5", "COUNT;7", 1)
	_, err := ParseClearing(strings.NewReader(bad))
	assert.ErrorIs(t, err, ErrTrailerMismatch)
}

func TestParseClearingMissingTrailer(t *testing.T) {
	bad := strings.Replace(goodClearingFile, "COUNT;5\n", "", 1)
	_, err := ParseClearing(strings.NewReader(bad))
	assert.ErrorIs(t, err, ErrMissingTrailer)
}

func TestParseClearingMalformedHeader(t *testing.T) {
	_, err := ParseClearing(strings.NewReader("garbage\nheader\nCOUNT;2\n"))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestParseClearingMalformedLine(t *testing.T) {
	bad := strings.Replace(goodClearingFile, "5712345678901;120", "5712345678901;twelve", 1)
	_, err := ParseClearing(strings.NewReader(bad))
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestParseClearingEmpty(t *testing.T) {
	_, err := ParseClearing(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}
