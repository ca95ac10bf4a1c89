package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Top-level field names of a game record in its JSON form.
const (
	FieldID         = "id"
	FieldStartedAt  = "startedAt"
	FieldPlayerName = "playerName"
)

var (
	// ErrIDAssigned is returned when a record that already carries an id is saved.
	// Ids are assigned by the store only.
	ErrIDAssigned = errors.New("record already has an id")

	// ErrReservedField is returned when a payload key shadows a top-level field.
	ErrReservedField = errors.New("payload uses a reserved field name")
)

// Game is one persisted round of the number-guessing game.
//
// ID is zero until the store assigns it. StartedAt is epoch milliseconds and
// orders retrieval. Payload carries every other outcome field (attempts,
// result, ...) and is stored and returned verbatim.
type Game struct {
	ID         int64
	StartedAt  int64
	PlayerName string
	Payload    Object
}

// StartedAtTime returns StartedAt as a UTC time.
func (g Game) StartedAtTime() time.Time {
	return time.UnixMilli(g.StartedAt).UTC()
}

// Millis converts t to the epoch-millisecond form used by StartedAt.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// PlayerKey is the lookup key stored for a player name: the NFC normal form,
// so composed and decomposed spellings of the same name match.
func PlayerKey(name string) string {
	return norm.NFC.String(name)
}

// Validate checks that the payload does not shadow a top-level field.
func (g Game) Validate() error {
	for _, k := range []string{FieldID, FieldStartedAt, FieldPlayerName} {
		if _, ok := g.Payload[k]; ok {
			return fmt.Errorf("%w: %q", ErrReservedField, k)
		}
	}
	return nil
}

// Fields returns the flat object form of the record: id (when assigned),
// startedAt, playerName and the payload fields.
func (g Game) Fields() Object {
	obj := make(Object, len(g.Payload)+3)
	for k, v := range g.Payload {
		obj[k] = v
	}
	if g.ID != 0 {
		obj[FieldID] = Int(g.ID)
	}
	obj[FieldStartedAt] = Int(g.StartedAt)
	obj[FieldPlayerName] = String(g.PlayerName)
	return obj
}

// MarshalJSON encodes the flat object form.
func (g Game) MarshalJSON() ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return MarshalCanonical(g.Fields())
}

// UnmarshalJSON decodes the flat object form. Unknown fields land in Payload.
func (g *Game) UnmarshalJSON(data []byte) error {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	decoded, err := FromObject(obj)
	if err != nil {
		return err
	}
	*g = decoded
	return nil
}

// FromObject splits a flat object into a Game.
func FromObject(obj Object) (Game, error) {
	var g Game
	g.Payload = make(Object, len(obj))

	for k, v := range obj {
		switch k {
		case FieldID:
			id, ok := v.(Int)
			if !ok {
				return Game{}, fmt.Errorf("%s must be an integer, got %T", FieldID, v)
			}
			g.ID = int64(id)
		case FieldStartedAt:
			ts, ok := v.(Int)
			if !ok {
				return Game{}, fmt.Errorf("%s must be an integer, got %T", FieldStartedAt, v)
			}
			g.StartedAt = int64(ts)
		case FieldPlayerName:
			name, ok := v.(String)
			if !ok {
				return Game{}, fmt.Errorf("%s must be a string, got %T", FieldPlayerName, v)
			}
			g.PlayerName = string(name)
		default:
			g.Payload[k] = v
		}
	}
	return g, nil
}
