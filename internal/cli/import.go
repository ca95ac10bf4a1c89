package cli

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/guessdb/internal/record"
)

//go:embed import.cue
var importSchema string

// ImportDocument is the YAML (or JSON) layout read by the import command.
type ImportDocument struct {
	Games []map[string]any `yaml:"games"`
}

// ImportResult is the JSON payload of a successful import.
type ImportResult struct {
	Imported int     `json:"imported"`
	IDs      []int64 `json:"ids"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import games from a YAML or JSON file",
		Long: `Import games from a YAML or JSON file of the form:

  games:
    - startedAt: 2024-03-01T12:00:00Z   # RFC 3339 or epoch milliseconds
      playerName: alice
      attempts: [50, 25, 37]
      result: win

Every entry is checked before anything is saved. Entries must not carry an id.

Example:
  guessdb import ./games.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("cannot read %s", path), err)
	}

	games, err := ParseImport(data)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidInput, fmt.Sprintf("invalid import file %s", path), err)
	}

	st := openStore(opts)
	defer st.Close()

	result := ImportResult{IDs: []int64{}}
	for i, g := range games {
		id, err := st.SaveGame(ctx, g)
		if err != nil {
			return storeFailure(f, fmt.Sprintf("failed to save game %d of %d (%d saved)", i+1, len(games), result.Imported), err)
		}
		result.IDs = append(result.IDs, id)
		result.Imported++
	}

	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d game(s)", result.Imported)
		for _, id := range result.IDs {
			fmt.Fprintf(w, " #%d", id)
		}
		fmt.Fprintln(w)
	})
}

// ParseImport decodes an import document, checks every entry against the
// import schema and converts the entries to games.
func ParseImport(data []byte) ([]record.Game, error) {
	var doc ImportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	entries := make([]map[string]any, len(doc.Games))
	for i, raw := range doc.Games {
		entry, err := normalizeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		entries[i] = entry
	}

	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	games := make([]record.Game, len(entries))
	for i, entry := range entries {
		v, err := record.FromAny(entry)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		g, err := record.FromObject(v.(record.Object))
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		games[i] = g
	}
	return games, nil
}

// normalizeEntry converts startedAt to epoch milliseconds and rejects ids.
func normalizeEntry(raw map[string]any) (map[string]any, error) {
	if _, ok := raw[record.FieldID]; ok {
		return nil, fmt.Errorf("%w: ids are assigned on save", record.ErrIDAssigned)
	}

	entry := make(map[string]any, len(raw))
	for k, v := range raw {
		entry[k] = v
	}

	switch ts := raw[record.FieldStartedAt].(type) {
	case time.Time:
		entry[record.FieldStartedAt] = record.Millis(ts)
	case string:
		ms, err := parseStartedAt(ts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", record.FieldStartedAt, err)
		}
		entry[record.FieldStartedAt] = ms
	}
	return entry, nil
}

// validateEntries checks every entry against #Game from import.cue.
func validateEntries(entries []map[string]any) error {
	cctx := cuecontext.New()
	schema := cctx.CompileString(importSchema, cue.Filename("import.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("import schema: %w", err)
	}
	gameDef := schema.LookupPath(cue.ParsePath("#Game"))

	for i, entry := range entries {
		v := gameDef.Unify(cctx.Encode(entry))
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return fmt.Errorf("game %d: %s", i+1, errors.Details(err, nil))
		}
	}
	return nil
}
