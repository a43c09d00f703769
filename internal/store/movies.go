package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moodreel/internal/taxonomy"
)

const movieColumns = "id, tmdb_id, title, year, synopsis, genres_json, keywords_json, vote_average, imdb_rating, created_at, updated_at"

func scanMovie(scanner rowScanner) (taxonomy.Movie, error) {
	var (
		movie    taxonomy.Movie
		tmdbID   sql.NullInt64
		year     sql.NullInt64
		genres   string
		keywords string
		created  sql.NullString
		updated  sql.NullString
	)
	if err := scanner.Scan(&movie.ID, &tmdbID, &movie.Title, &year, &movie.Synopsis, &genres, &keywords,
		&movie.VoteAverage, &movie.IMDBRating, &created, &updated); err != nil {
		return taxonomy.Movie{}, err
	}
	movie.TMDBID = tmdbID.Int64
	movie.Year = int(year.Int64)
	movie.Genres = decodeList(genres)
	movie.Keywords = decodeList(keywords)
	movie.CreatedAt = parseTime(created)
	movie.UpdatedAt = parseTime(updated)
	return movie, nil
}

// UpsertMovie stores movie attributes keyed by TMDB id, returning the stored
// row. Movies without a TMDB id are always inserted.
func (s *Store) UpsertMovie(ctx context.Context, movie taxonomy.Movie) (taxonomy.Movie, error) {
	if strings.TrimSpace(movie.Title) == "" {
		return taxonomy.Movie{}, errors.New("movie title required")
	}
	now := s.timestamp()
	var tmdbID sql.NullInt64
	if movie.TMDBID > 0 {
		tmdbID = sql.NullInt64{Int64: movie.TMDBID, Valid: true}
	}
	var year sql.NullInt64
	if movie.Year > 0 {
		year = sql.NullInt64{Int64: int64(movie.Year), Valid: true}
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`INSERT INTO movies (tmdb_id, title, year, synopsis, genres_json, keywords_json, vote_average, imdb_rating, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(tmdb_id) DO UPDATE SET
			   title = excluded.title,
			   year = excluded.year,
			   synopsis = excluded.synopsis,
			   genres_json = excluded.genres_json,
			   keywords_json = excluded.keywords_json,
			   vote_average = excluded.vote_average,
			   imdb_rating = excluded.imdb_rating,
			   updated_at = excluded.updated_at
			 RETURNING id`,
			tmdbID, strings.TrimSpace(movie.Title), year, movie.Synopsis, encodeList(movie.Genres), encodeList(movie.Keywords),
			movie.VoteAverage, movie.IMDBRating, now, now,
		).Scan(&id)
	})
	if err != nil {
		return taxonomy.Movie{}, fmt.Errorf("upsert movie: %w", err)
	}
	stored, err := s.Movie(ctx, id)
	if err != nil {
		return taxonomy.Movie{}, err
	}
	if stored == nil {
		return taxonomy.Movie{}, fmt.Errorf("movie %d vanished after upsert", id)
	}
	return *stored, nil
}

// Movie returns the movie with id or nil.
func (s *Store) Movie(ctx context.Context, id int64) (*taxonomy.Movie, error) {
	movie, err := scanMovie(s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load movie: %w", err)
	}
	return &movie, nil
}

// MovieByTMDBID returns the movie imported from tmdbID or nil.
func (s *Store) MovieByTMDBID(ctx context.Context, tmdbID int64) (*taxonomy.Movie, error) {
	movie, err := scanMovie(s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE tmdb_id = ?`, tmdbID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load movie by tmdb id: %w", err)
	}
	return &movie, nil
}

// Movies lists movies by id.
func (s *Store) Movies(ctx context.Context) ([]taxonomy.Movie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, movie)
	}
	return out, rows.Err()
}
