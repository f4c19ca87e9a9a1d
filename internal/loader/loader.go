package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoTasks           = errors.New("no tasks in input")
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

var (
	productColumns = []string{"solution_name", "product", "product_name"}
	vendorColumns  = []string{"vendor", "vendor_name"}
)

// LoadCSV reads tasks from a CSV with a header row. Product and vendor
// columns are located by name, falling back to the first two columns.
// Rows with a blank product are skipped with a warning.
func LoadCSV(r io.Reader, logger *slog.Logger) ([]models.Task, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return tasksFromRows(records, logger)
}

// LoadXLSX reads tasks from the first sheet of a workbook, with the same
// column rules as LoadCSV.
func LoadXLSX(r io.Reader, logger *slog.Logger) ([]models.Task, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoTasks
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return tasksFromRows(rows, logger)
}

// LoadFile picks the reader by extension: .csv, or .xlsx / .xlsm.
func LoadFile(path string, logger *slog.Logger) ([]models.Task, error) {
	var load func(io.Reader, *slog.Logger) ([]models.Task, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		load = LoadCSV
	case ".xlsx", ".xlsm":
		load = LoadXLSX
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return load(f, logger)
}

func tasksFromRows(rows [][]string, logger *slog.Logger) ([]models.Task, error) {
	if len(rows) == 0 {
		return nil, ErrNoTasks
	}

	productIdx, vendorIdx := locateColumns(rows[0])

	var tasks []models.Task
	for i, record := range rows[1:] {
		product := field(record, productIdx)
		if product == "" {
			if !blank(record) {
				logger.Warn("skipping row without product", "row", i+2, "vendor", field(record, vendorIdx))
			}
			continue
		}
		tasks = append(tasks, models.Task{
			Product: product,
			Vendor:  field(record, vendorIdx),
		})
	}

	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	return tasks, nil
}

func locateColumns(header []string) (product, vendor int) {
	product, vendor = -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if product < 0 && contains(productColumns, name) {
			product = i
		}
		if vendor < 0 && contains(vendorColumns, name) {
			vendor = i
		}
	}
	if product < 0 {
		product = 0
	}
	if vendor < 0 {
		vendor = 1
	}
	return product, vendor
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
