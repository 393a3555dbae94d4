package archetype

import (
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Apply stamps archetype and direction labels onto every row, in place.
func (c Config) Apply(rows []table.Row) {
	for i := range rows {
		row := &rows[i]
		in := Inputs{
			WinRateWindow:   row.WinRateWindow,
			Consistency:     row.Consistency,
			ConsistencyLoss: row.ConsistencyLoss,
			AvgPvEWindow:    row.AvgPvEWindow,
		}
		row.Archetype = c.Classify(in)
		row.DirectionLabel = c.Direction(in)
	}
}
