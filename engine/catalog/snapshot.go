package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// DecodeJSON reads a snapshot document. Both a top-level array of movies and
// an object of the form {"movies": [...]} are accepted.
func DecodeJSON(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, docError("read snapshot", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Snapshot{}, docError("empty snapshot document", nil)
	}

	var rows []Row
	switch data[0] {
	case '[':
		if err := unmarshalNumber(data, &rows); err != nil {
			return Snapshot{}, docError("decode snapshot", err)
		}
	case '{':
		var doc struct {
			Movies []Row `json:"movies"`
		}
		if err := unmarshalNumber(data, &doc); err != nil {
			return Snapshot{}, docError("decode snapshot", err)
		}
		if doc.Movies == nil {
			return Snapshot{}, docError(`snapshot object has no "movies" array`, nil)
		}
		rows = doc.Movies
	default:
		return Snapshot{}, docError("snapshot is not a JSON array or object", nil)
	}
	return Snapshot{Rows: rows}, nil
}

// DecodeJSONL reads one JSON movie object per line. Blank lines are skipped.
func DecodeJSONL(r io.Reader) (Snapshot, error) {
	var rows []Row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var row Row
		if err := unmarshalNumber(text, &row); err != nil {
			return Snapshot{}, docError(fmt.Sprintf("decode line %d", line), err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return Snapshot{}, docError("read snapshot", err)
	}
	return Snapshot{Rows: rows}, nil
}

// LoadFile reads and validates a snapshot file, choosing the decoder by
// extension: .json, .jsonl/.ndjson, or .db/.sqlite/.sqlite3.
func LoadFile(ctx context.Context, path string) (*Catalog, error) {
	var (
		snap Snapshot
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".db", ".sqlite", ".sqlite3":
		snap, err = ReadSQLite(ctx, path)
	case ".json", ".jsonl", ".ndjson":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, docError("open snapshot", openErr)
		}
		defer f.Close()
		if ext == ".json" {
			snap, err = DecodeJSON(f)
		} else {
			snap, err = DecodeJSONL(f)
		}
	default:
		return nil, docError(fmt.Sprintf("unsupported snapshot extension %q", ext), nil)
	}
	if err != nil {
		return nil, err
	}
	return Load(snap)
}

func unmarshalNumber(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeBlob reads a little-endian float32 array as written by numpy's tobytes.
func decodeBlob(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for j := range out {
		out[j] = math.Float32frombits(binary.LittleEndian.Uint32(b[j*4:]))
	}
	return out, checkFinite(out)
}
