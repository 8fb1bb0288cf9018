package exporter

import (
	"io"

	"github.com/hotpath-tools/perfanno/internal/report"
)

// WriteJSON renders the tree verbatim as the structured document: no
// filtering, no truncation, daemon keys in tree order.
func WriteJSON(w io.Writer, rep *report.Report) error {
	data, err := rep.MarshalIndent()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
