package epw

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// File is a complete EPW document.
type File struct {
	Header Header
	Table  *Table
}

// Encode writes f to w: one line per header block, then one line per row.
// Lines end with CRLF as EnergyPlus' own weather files do.
func Encode(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	for _, b := range f.Header.Blocks {
		if _, err := bw.WriteString(b.Name); err != nil {
			return err
		}
		for _, field := range b.Fields {
			bw.WriteByte(',')
			bw.WriteString(field)
		}
		bw.WriteString("\r\n")
	}

	if f.Table != nil {
		for _, row := range f.Table.Rows {
			for i, v := range row {
				if i > 0 {
					bw.WriteByte(',')
				}
				bw.WriteString(FormatValue(v))
			}
			if _, err := bw.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Decode reads an EPW document. Header lines are recognized by their block
// name; every line after DATA PERIODS must be a 35-field data row.
func Decode(r io.Reader) (*File, error) {
	f := &File{Table: &Table{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	inData := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")

		if !inData {
			if !isBlockName(parts[0]) {
				return nil, fmt.Errorf("epw: line %d: unknown header block %q", lineNo, parts[0])
			}
			f.Header.Blocks = append(f.Header.Blocks, Block{Name: parts[0], Fields: parts[1:]})
			if parts[0] == BlockDataPeriods {
				inData = true
			}
			continue
		}

		if len(parts) != int(NumFields) {
			return nil, fmt.Errorf("epw: line %d: %d fields, want %d", lineNo, len(parts), NumFields)
		}
		var rec Record
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("epw: line %d field %q: %w", lineNo, Field(i), err)
			}
			rec[i] = v
		}
		f.Table.Rows = append(f.Table.Rows, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !inData {
		return nil, fmt.Errorf("epw: missing %s block", BlockDataPeriods)
	}
	return f, nil
}
