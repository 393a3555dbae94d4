package report

import (
	"crypto/sha1"
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

const tweetLimit = 280

// Tweet is the two-part thread payload: coded metrics first, commentary as
// the reply.
type Tweet struct {
	Main    string
	Comment string
}

// Mode selects the emoji prefix and hint pool.
type Mode string

const (
	ModeBoard    Mode = "board"
	ModePregame  Mode = "pregame"
	ModePostgame Mode = "postgame"
)

var modePrefix = map[Mode]string{
	ModeBoard:    "📊",
	ModePregame:  "🏀",
	ModePostgame: "🏁",
}

var modeHints = map[Mode][]string{
	ModeBoard: {
		"🧠 Analyst note below ⤵️",
		"💬 Quick context below ⤵️",
		"🔎 Analyst context below ⤵️",
	},
	ModePregame: {
		"💭 Context below ⤵️",
		"📊 Breakdown below ⤵️",
		"🗣️ Analyst view below ⤵️",
	},
	ModePostgame: {
		"🔎 Postgame insight below ⤵️",
		"💭 What it means below ⤵️",
		"🧠 Takeaway below ⤵️",
	},
}

// stableHint picks a hint deterministically from the seed, so re-rendering
// the same board yields the same tweet.
func stableHint(hints []string, seed string) string {
	sum := sha1.Sum([]byte(seed))
	n := new(big.Int).SetBytes(sum[:])
	idx := new(big.Int).Mod(n, big.NewInt(int64(len(hints)))).Int64()
	return hints[idx]
}

// Compose builds the two-part tweet for a board render. Only the body is
// shortened to fit; header and hint always survive intact.
func Compose(mode Mode, boardName, header, body, commentary string) Tweet {
	prefix := modePrefix[mode]
	hints := modeHints[mode]
	if len(hints) == 0 {
		hints = []string{"🗣️ Comment below ⤵️"}
	}

	hint := stableHint(hints, fmt.Sprintf("%s:%s:%s", mode, boardName, header))
	headerBlock := strings.TrimSpace(prefix + " " + header)

	body = strings.TrimSpace(body)
	if body != "" {
		maxBody := tweetLimit - utf8.RuneCountInString(headerBlock) - utf8.RuneCountInString(hint) - 4
		body = shorten(body, maxBody)
	}

	parts := make([]string, 0, 4)
	parts = append(parts, headerBlock)
	if body != "" {
		parts = append(parts, body)
	}
	parts = append(parts, "", hint)

	return Tweet{
		Main:    strings.TrimSpace(strings.Join(parts, "\n")),
		Comment: strings.TrimSpace(commentary),
	}
}

// shorten truncates at a word boundary and appends an ellipsis, never
// breaking inside a word.
func shorten(s string, width int) string {
	if width <= 1 || utf8.RuneCountInString(s) <= width {
		if width <= 1 {
			return "…"
		}
		return s
	}
	words := strings.Fields(s)
	var b strings.Builder
	for _, w := range words {
		candidate := b.String()
		if candidate != "" {
			candidate += " "
		}
		candidate += w
		if utf8.RuneCountInString(candidate)+1 > width {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return "…"
	}
	return b.String() + "…"
}

func trendEmoji(delta *float64) string {
	switch {
	case delta == nil:
		return "—"
	case *delta > 0.5:
		return "⬆️"
	case *delta < -0.5:
		return "⬇️"
	default:
		return "➡️"
	}
}

func fatigueDot(f float64) string {
	switch {
	case f >= 65:
		return "🔴"
	case f <= 40:
		return "🟢"
	default:
		return "🟡"
	}
}

func consistencyDot(c *float64) string {
	switch {
	case c == nil:
		return "—"
	case *c >= 0.65:
		return "🟢"
	case *c <= 0.40:
		return "⚠️"
	default:
		return "🟡"
	}
}

func matchupVolatility(volHome, volAway *float64) string {
	if volHome == nil || volAway == nil {
		return "UNKNOWN"
	}
	avg := (*volHome + *volAway) / 2
	switch {
	case avg >= 0.65:
		return "HIGH"
	case avg <= 0.35:
		return "LOW"
	default:
		return "MEDIUM"
	}
}

// PregameLens renders the matchup preview for one game. home and away are
// each team's latest metric row; records are season win-loss strings.
func PregameLens(home, away *table.Row, homeRecord, awayRecord string) string {
	matchup := fmt.Sprintf("%s (%s) @ %s (%s)", away.TeamName, awayRecord, home.TeamName, homeRecord)
	return fmt.Sprintf(
		"%s — pregame lens\n\n"+
			"Momentum:      %s %s | %s %s\n"+
			"Fatigue:       %s %s | %s %s\n"+
			"Consistency:   %s %s | %s %s\n"+
			"Volatility:    %s",
		matchup,
		trendEmoji(away.RPMIDelta), away.TeamName, trendEmoji(home.RPMIDelta), home.TeamName,
		fatigueDot(away.FatigueIndex), away.TeamName, fatigueDot(home.FatigueIndex), home.TeamName,
		consistencyDot(away.Consistency), away.TeamName, consistencyDot(home.Consistency), home.TeamName,
		matchupVolatility(home.PvEVolatility, away.PvEVolatility),
	)
}

// signalDot compares the home side's expected and actual margins.
func signalDot(expected *float64, actual float64) string {
	if expected == nil {
		return "🟡"
	}
	if *expected*actual > 0 {
		return "🟢"
	}
	if math.Abs(actual) <= 4 {
		return "🟡"
	}
	return "🔴"
}

// PostgameLens renders the result recap for one finished game.
func PostgameLens(home, away *table.Row) string {
	matchup := fmt.Sprintf("%s @ %s", away.TeamName, home.TeamName)
	dot := signalDot(home.ExpectedMargin, home.ActualMargin())

	homePts, awayPts := home.TeamPoints, home.OpponentPoints
	var winner, loser *table.Row
	var scoreline string
	if homePts > awayPts {
		winner, loser = home, away
		scoreline = fmt.Sprintf("%s %d – %d %s", home.TeamName, homePts, awayPts, away.TeamName)
	} else {
		winner, loser = away, home
		scoreline = fmt.Sprintf("%s %d – %d %s", away.TeamName, awayPts, homePts, home.TeamName)
	}

	volLabel := "medium volatility"
	if home.PvEVolatility != nil {
		switch {
		case *home.PvEVolatility >= 0.65:
			volLabel = "high volatility matchup"
		case *home.PvEVolatility <= 0.35:
			volLabel = "low volatility game"
		}
	}

	trend := "stable form"
	if home.RPMIDelta != nil {
		switch {
		case *home.RPMIDelta > 0.5:
			trend = "momentum rising"
		case *home.RPMIDelta < -0.5:
			trend = "momentum falling"
		}
	}

	context := fmt.Sprintf("%s maintained %s, while %s faced %s.",
		winner.TeamName, trend, loser.TeamName, volLabel)

	return fmt.Sprintf("%s %s\n%s\n\n%s", matchup, dot, scoreline, context)
}
