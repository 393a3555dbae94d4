// Package report renders metric tables into the text boards and matchup
// lenses published downstream. Output is plain text sized for social posts.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/signalnoise/nbasignal/internal/domain/archetype"
	"github.com/signalnoise/nbasignal/internal/domain/fatigue"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

func fatigueEmoji(tier string) string {
	switch fatigue.Tier(tier) {
	case fatigue.TierCritical, fatigue.TierHigh:
		return "🔴"
	case fatigue.TierElevated:
		return "🟠"
	case fatigue.TierLow:
		return "🟢"
	default:
		return "⚪"
	}
}

func momentumLabel(rpmi *float64) (string, string) {
	switch {
	case rpmi == nil:
		return "⚪", "Unknown"
	case *rpmi >= 5:
		return "🟢", "Strong"
	case *rpmi >= 2:
		return "🟢", "Positive"
	case *rpmi >= -2:
		return "🟠", "Flat"
	default:
		return "🔴", "Fading"
	}
}

func consistencyLabel(c *float64) (string, string) {
	switch {
	case c == nil:
		return "", ""
	case *c >= 0.65:
		return "🟢", "Very Consistent"
	case *c >= 0.50:
		return "🟢", "Consistent"
	case *c >= 0.35:
		return "⚠️", "Volatile"
	default:
		return "🔴", "Very Volatile"
	}
}

// rowsOnDate returns one row per team playing on the given date.
func rowsOnDate(rows []table.Row, day time.Time) []table.Row {
	y, m, d := day.Date()
	seen := make(map[int64]bool)
	var out []table.Row
	for i := range rows {
		ry, rm, rd := rows[i].GameDate.Date()
		if ry != y || rm != m || rd != d {
			continue
		}
		if seen[rows[i].TeamID] {
			continue
		}
		seen[rows[i].TeamID] = true
		out = append(out, rows[i])
	}
	return out
}

// FatigueBoard lists tonight's teams ordered most fatigued first.
func FatigueBoard(rows []table.Row, day time.Time) string {
	today := rowsOnDate(rows, day)
	if len(today) == 0 {
		return "No games tonight."
	}
	sort.SliceStable(today, func(i, j int) bool {
		return today[i].FatigueIndex > today[j].FatigueIndex
	})

	var b strings.Builder
	b.WriteString("Tonight’s fatigue board 💤\n")
	for i := range today {
		r := &today[i]
		fmt.Fprintf(&b, "\n%s %s — %s", fatigueEmoji(r.FatigueTier), r.TeamName, r.FatigueTier)
	}
	return b.String()
}

// MomentumBoard lists tonight's teams ordered by momentum, highest first.
func MomentumBoard(rows []table.Row, day time.Time) string {
	today := rowsOnDate(rows, day)
	if len(today) == 0 {
		return "No games tonight."
	}
	sort.SliceStable(today, func(i, j int) bool {
		a, bb := today[i].RPMI, today[j].RPMI
		if a == nil {
			return false
		}
		if bb == nil {
			return true
		}
		return *a > *bb
	})

	var b strings.Builder
	b.WriteString("Tonight’s momentum board 🔄\n")
	for i := range today {
		r := &today[i]
		emoji, label := momentumLabel(r.RPMI)
		fmt.Fprintf(&b, "\n%s %s — %s", emoji, r.TeamName, label)
	}
	return b.String()
}

// ConsistencyBoard ranks every team by its latest consistency reading.
// Teams without a reading yet are omitted.
func ConsistencyBoard(rows []table.Row) string {
	latest := make(map[int64]table.Row)
	for i := range rows {
		r := rows[i]
		cur, ok := latest[r.TeamID]
		if !ok || r.GameDate.After(cur.GameDate) {
			latest[r.TeamID] = r
		}
	}

	var ranked []table.Row
	for _, r := range latest {
		if r.Consistency != nil {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if *ranked[i].Consistency != *ranked[j].Consistency {
			return *ranked[i].Consistency > *ranked[j].Consistency
		}
		return ranked[i].TeamName < ranked[j].TeamName
	})

	var b strings.Builder
	b.WriteString("Weekly Consistency Board 📊\n")
	for i := range ranked {
		r := &ranked[i]
		emoji, label := consistencyLabel(r.Consistency)
		fmt.Fprintf(&b, "\n%s %s — %s", emoji, r.TeamName, label)
	}
	return b.String()
}

// EnvironmentBoard lists tonight's matchups ordered noisiest first.
func EnvironmentBoard(envs []archetype.GameEnvironment, day time.Time) string {
	y, m, d := day.Date()
	var today []archetype.GameEnvironment
	for i := range envs {
		ey, em, ed := envs[i].GameDate.Date()
		if ey == y && em == m && ed == d {
			today = append(today, envs[i])
		}
	}
	if len(today) == 0 {
		return "No games tonight."
	}
	sort.SliceStable(today, func(i, j int) bool {
		a, bb := today[i].NoiseScore, today[j].NoiseScore
		if a == nil {
			return false
		}
		if bb == nil {
			return true
		}
		return *a > *bb
	})

	var b strings.Builder
	b.WriteString("Tonight’s game environments 🌡️\n")
	for i := range today {
		e := &today[i]
		emoji := "🟡"
		switch e.Label {
		case archetype.EnvClean:
			emoji = "🟢"
		case archetype.EnvNoisy:
			emoji = "🔴"
		}
		fmt.Fprintf(&b, "\n%s %s — %s (%s)", emoji, e.Matchup, e.Label, e.Drivers)
	}
	return b.String()
}
