// Package report appends plain-text outcome records for external commands.
//
// Each Append opens the file, writes one record in a single call and closes
// it again, so records from concurrent writers never interleave and a crash
// leaves earlier records intact.
package report

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Record is one command outcome as written to a report file.
type Record struct {
	Program  string
	ExitCode int
	Stderr   string
	Stdout   string
}

// Format renders the record followed by the blank separator line.
func (r Record) Format() string {
	return fmt.Sprintf("%s exited w/ code %d\n\nStd Error:\n%s\n\nStd Output:\n%s\n\n\n",
		r.Program, r.ExitCode, r.Stderr, r.Stdout)
}

// WriteError is returned when a record could not be persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Append writes rec to the end of the file at path, creating it if needed.
func Append(path string, rec Record) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if _, err := f.WriteString(rec.Format()); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

var headerRe = regexp.MustCompile(`(?m)^(.*) exited w/ code (-?\d+)\n\nStd Error:\n`)

const (
	outputMarker = "\n\nStd Output:\n"
	recordEnd    = "\n\n\n"
)

// ReadRecords parses every record in a report file, in file order.
// Output that itself contains record markers cannot be split unambiguously;
// such records are returned as best-effort.
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Parse splits report text into records.
func Parse(text string) []Record {
	matches := headerRe.FindAllStringSubmatchIndex(text, -1)
	records := make([]Record, 0, len(matches))

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := text[m[1]:end]

		code, _ := strconv.Atoi(text[m[4]:m[5]])
		rec := Record{
			Program:  text[m[2]:m[3]],
			ExitCode: code,
		}

		if idx := strings.Index(body, outputMarker); idx >= 0 {
			rec.Stderr = body[:idx]
			rec.Stdout = strings.TrimSuffix(body[idx+len(outputMarker):], recordEnd)
		} else {
			rec.Stderr = strings.TrimSuffix(body, recordEnd)
		}
		records = append(records, rec)
	}

	return records
}
