// Package export writes aggregated cost records as a semicolon-delimited
// CSV file with European number formatting.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/billingops/azure-billing-export/internal/cost"
)

// Delimiter separates CSV fields; costs use a comma as decimal separator,
// so the field separator cannot be one.
const Delimiter = ';'

var header = []string{"Date", "ResourceName", "CostUSD", "CostEUR"}

// Error reports a failure writing the output file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WriteCSV writes records to path. The parent directory must already
// exist; missing directories are not created.
func WriteCSV(records []cost.Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	w.Comma = Delimiter

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, header)
	for _, r := range records {
		rows = append(rows, []string{r.Date, r.ResourceName, formatCost(r.CostUSD), formatCost(r.CostEUR)})
	}

	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return &Error{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}

// formatCost renders a cost with two decimals and a comma decimal
// separator, no thousands separator: 4859.63 becomes "4859,63".
func formatCost(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}
