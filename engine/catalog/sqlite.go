package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite snapshots keep one row per movie in a "movies" table. Genres are a
// JSON list, embeddings are either a JSON list or a float32 little-endian blob.
const selectMovies = `SELECT title, genres, release_date, overview, popularity, embedding
FROM movies ORDER BY rowid`

// ReadSQLite reads a snapshot from a read-only SQLite database file.
func ReadSQLite(ctx context.Context, path string) (Snapshot, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return Snapshot{}, docError("open sqlite snapshot", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectMovies)
	if err != nil {
		return Snapshot{}, docError("query sqlite snapshot", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var (
			title, genres, release, overview sql.NullString
			popularity                       any
			embedding                        any
		)
		if err := rows.Scan(&title, &genres, &release, &overview, &popularity, &embedding); err != nil {
			return Snapshot{}, docError("scan sqlite snapshot", err)
		}
		row := Row{
			FieldPopularity: popularity,
			FieldEmbedding:  embedding,
		}
		if title.Valid {
			row[FieldTitle] = title.String
		}
		if genres.Valid {
			row[FieldGenres] = genres.String
		}
		if release.Valid {
			row[FieldReleaseDate] = release.String
		}
		if overview.Valid {
			row[FieldOverview] = overview.String
		}
		if embedding == nil {
			delete(row, FieldEmbedding)
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, docError("read sqlite snapshot", err)
	}
	return snap, nil
}
