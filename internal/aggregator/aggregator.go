package aggregator

import (
	"fmt"

	"github.com/maltedev/marketplace-matcher/internal/models"
)

// Aggregator collects rows by input index so the final table keeps input
// order regardless of completion order. It is not safe for concurrent use.
type Aggregator struct {
	rows   []models.ResultRow
	filled []bool
	count  int
}

// New pre-fills one "no match" row per task.
func New(tasks []models.Task) *Aggregator {
	rows := make([]models.ResultRow, len(tasks))
	for i, t := range tasks {
		rows[i] = models.NewEmptyRow(t)
	}
	return &Aggregator{
		rows:   rows,
		filled: make([]bool, len(tasks)),
	}
}

func (a *Aggregator) Add(index int, row models.ResultRow) error {
	if index < 0 || index >= len(a.rows) {
		return fmt.Errorf("row index %d out of range [0,%d)", index, len(a.rows))
	}
	if a.filled[index] {
		return fmt.Errorf("row %d already recorded", index)
	}
	a.rows[index] = row
	a.filled[index] = true
	a.count++
	return nil
}

func (a *Aggregator) Len() int {
	return a.count
}

func (a *Aggregator) Complete() bool {
	return a.count == len(a.rows)
}

// Rows returns a copy of the table in input order.
func (a *Aggregator) Rows() []models.ResultRow {
	out := make([]models.ResultRow, len(a.rows))
	copy(out, a.rows)
	return out
}
