package export

import "fmt"

// Column describes one exported field. Weight controls relative PDF width.
type Column struct {
	Key    string
	Label  string
	Weight float64
}

// Dataset is a titled table of string cells keyed by column.
type Dataset struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     []map[string]string
}

// Labels returns the header row.
func (d Dataset) Labels() []string {
	labels := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.Key
		}
	}
	return labels
}

// Record returns row i in column order.
func (d Dataset) Record(i int) []string {
	record := make([]string, len(d.Columns))
	for j, col := range d.Columns {
		record[j] = d.Rows[i][col.Key]
	}
	return record
}

func (d Dataset) validate(format string) error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", format)
	}
	return nil
}
