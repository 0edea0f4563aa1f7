package leads

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvHeader matches the column order the admin spreadsheet template
// expects. The header row is written bare; data values are always quoted.
var csvHeader = []string{
	"ID", "Full Name", "Phone Number", "Email", "Institution", "Occupation",
	"Created At", "Call Date/Time", "Call Notes", "Visit Date/Time", "Visit Notes",
}

// WriteCSV renders the lead collection as the downloadable CSV artifact.
// Every value is quoted unconditionally, with embedded quotes doubled;
// nil tracking fields render as empty strings.
func WriteCSV(w io.Writer, leads []Lead) error {
	if _, err := fmt.Fprintln(w, strings.Join(csvHeader, ",")); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, lead := range leads {
		fields := []string{
			strconv.FormatInt(lead.ID, 10),
			lead.FullName,
			lead.PhoneNumber,
			lead.Email,
			lead.Institution,
			lead.Occupation,
			lead.CreatedAt,
			stringValue(lead.CallDatetime),
			stringValue(lead.CallNotes),
			stringValue(lead.VisitDatetime),
			stringValue(lead.VisitNotes),
		}
		for i, f := range fields {
			fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, ",")); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ExportCSV writes the full lead table as CSV.
func (r *Repository) ExportCSV(w io.Writer) error {
	all, err := r.GetAll()
	if err != nil {
		return err
	}
	return WriteCSV(w, all)
}
