package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const clearingDateLayout = "20060102"

var (
	ErrEmptyFile       = errors.New("empty_clearing_file")
	ErrMalformedHeader = errors.New("malformed_clearing_header")
	ErrMalformedLine   = errors.New("malformed_clearing_line")
	ErrMissingTrailer  = errors.New("missing_clearing_trailer")
	ErrTrailerMismatch = errors.New("clearing_trailer_mismatch")
)

// ClearingLine is one counted position from a clearing file.
type ClearingLine struct {
	LocationID string
	Serial     string
	Date       time.Time
	Barcode    string
	Count      int
}

// ClearingFile is a fully parsed and trailer-checked clearing file.
type ClearingFile struct {
	Tag      string
	FromDate time.Time
	ToDate   time.Time
	Lines    []ClearingLine
}

// ParseClearing reads a clearing file. The first line carries a tag and the
// covered date range, the second is a column header, then data lines, then a
// COUNT trailer whose value must equal the number of data lines plus two.
// Any violation fails the whole file.
func ParseClearing(r io.Reader) (*ClearingFile, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	head := strings.Split(lines[0], ";")
	if len(head) < 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, lines[0])
	}
	from, err := time.Parse(clearingDateLayout, head[1])
	if err != nil {
		return nil, fmt.Errorf("%w: from date %q", ErrMalformedHeader, head[1])
	}
	to, err := time.Parse(clearingDateLayout, head[2])
	if err != nil {
		return nil, fmt.Errorf("%w: to date %q", ErrMalformedHeader, head[2])
	}

	file := &ClearingFile{Tag: head[0], FromDate: from, ToDate: to}
	if len(lines) < 3 {
		return nil, ErrMissingTrailer
	}

	// lines[1] is the column header; the last line must be the trailer.
	body := lines[2 : len(lines)-1]
	trailer := lines[len(lines)-1]

	for i, line := range body {
		parsed, err := parseClearingLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+3, err)
		}
		file.Lines = append(file.Lines, parsed)
	}

	fields := strings.Split(trailer, ";")
	if len(fields) < 2 || !strings.EqualFold(fields[0], "COUNT") {
		return nil, fmt.Errorf("%w: %q", ErrMissingTrailer, trailer)
	}
	declared, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingTrailer, trailer)
	}
	// The declared count covers the data lines plus the two leading lines.
	if declared != len(file.Lines)+2 {
		return nil, fmt.Errorf("%w: declared %d, have %d data lines", ErrTrailerMismatch, declared, len(file.Lines))
	}
	return file, nil
}

func parseClearingLine(line string) (ClearingLine, error) {
	fields := strings.Split(line, ";")
	if len(fields) < 5 {
		return ClearingLine{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	date, err := time.Parse(clearingDateLayout, strings.TrimSpace(fields[2]))
	if err != nil {
		return ClearingLine{}, fmt.Errorf("%w: date %q", ErrMalformedLine, fields[2])
	}
	count, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return ClearingLine{}, fmt.Errorf("%w: count %q", ErrMalformedLine, fields[4])
	}
	return ClearingLine{
		LocationID: strings.TrimSpace(fields[0]),
		Serial:     strings.TrimSpace(fields[1]),
		Date:       date,
		Barcode:    strings.TrimSpace(fields[3]),
		Count:      count,
	}, nil
}
