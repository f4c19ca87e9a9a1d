package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maltedev/marketplace-matcher/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Header lists the CSV columns: the task, then product, vendor and link for
// each marketplace.
func Header() []string {
	header := []string{"product", "vendor"}
	for _, m := range models.Marketplaces {
		prefix := strings.ToLower(string(m))
		header = append(header, prefix+"_product", prefix+"_vendor", prefix+"_link")
	}
	return header
}

func WriteJSON(w io.Writer, rows []models.ResultRow) error {
	if rows == nil {
		rows = []models.ResultRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return nil
}

// WriteCSV writes one record per row. Missing matches and missing fields are
// empty cells.
func WriteCSV(w io.Writer, rows []models.ResultRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		record := []string{row.Task.Product, row.Task.Vendor}
		for _, m := range models.Marketplaces {
			res := row.Result(m)
			if !res.Matched() {
				record = append(record, "", "", "")
				continue
			}
			record = append(record, res.Listing.ProductName(), res.Listing.VendorName(), res.Listing.URL())
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func Write(w io.Writer, format Format, rows []models.ResultRow) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatCSV:
		return WriteCSV(w, rows)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// WriteFile renders rows and replaces path atomically through a temp file.
func WriteFile(path string, format Format, rows []models.ResultRow) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, rows); err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to replace output: %w", err)
	}
	return nil
}
