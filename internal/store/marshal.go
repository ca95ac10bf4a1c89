package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/guessdb/internal/record"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
func marshalPayload(payload record.Object) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := record.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored JSON TEXT. An empty payload decodes to an
// empty (non-nil) object.
func unmarshalPayload(data string) (record.Object, error) {
	if data == "" || data == "{}" {
		return record.Object{}, nil
	}
	var obj record.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanGame reads id, started_at, player_name, payload.
func scanGame(row scanner) (record.Game, error) {
	var (
		g       record.Game
		payload string
	)
	if err := row.Scan(&g.ID, &g.StartedAt, &g.PlayerName, &payload); err != nil {
		return record.Game{}, err
	}
	obj, err := unmarshalPayload(payload)
	if err != nil {
		return record.Game{}, fmt.Errorf("game %d: %w", g.ID, err)
	}
	g.Payload = obj
	return g, nil
}
