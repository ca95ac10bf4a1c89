// Package record defines the game record persisted by the store and the
// JSON-like value model used for its opaque outcome payload.
//
// A Game has three fields the store understands (ID, StartedAt, PlayerName);
// everything else is Payload. Payloads are encoded with MarshalCanonical so the
// same payload always produces the same bytes.
package record
