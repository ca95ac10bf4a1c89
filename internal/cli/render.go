package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/guessdb/internal/record"
)

// formatStartedAt renders epoch milliseconds as UTC RFC 3339.
func formatStartedAt(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// formatPayload renders a payload as canonical JSON.
func formatPayload(payload record.Object) string {
	data, err := record.MarshalCanonical(payload)
	if err != nil {
		return fmt.Sprintf("<invalid payload: %v>", err)
	}
	return string(data)
}

// writeGameLine writes the one-line summary used by list.
func writeGameLine(w io.Writer, g record.Game) {
	fmt.Fprintf(w, "#%d  %s  %s  %s\n", g.ID, formatStartedAt(g.StartedAt), g.PlayerName, formatPayload(g.Payload))
}

// writeGameList writes a count header followed by one line per game.
func writeGameList(w io.Writer, games []record.Game) {
	if len(games) == 0 {
		fmt.Fprintln(w, "No games recorded.")
		return
	}
	noun := "games"
	if len(games) == 1 {
		noun = "game"
	}
	fmt.Fprintf(w, "%d %s\n", len(games), noun)
	for _, g := range games {
		writeGameLine(w, g)
	}
}

// writeGameDetail writes every field of one game, payload keys in canonical order.
func writeGameDetail(w io.Writer, g record.Game) {
	fmt.Fprintf(w, "Game #%d\n", g.ID)
	fmt.Fprintf(w, "%s: %s\n", record.FieldStartedAt, formatStartedAt(g.StartedAt))
	fmt.Fprintf(w, "%s: %s\n", record.FieldPlayerName, g.PlayerName)
	for _, k := range g.Payload.SortedKeys() {
		data, err := record.MarshalCanonical(g.Payload[k])
		if err != nil {
			data = []byte(fmt.Sprintf("<invalid: %v>", err))
		}
		fmt.Fprintf(w, "%s: %s\n", k, data)
	}
}
