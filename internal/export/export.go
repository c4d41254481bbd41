// Package export persists query results to sqlite.
package export

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"ltbxd-scraper/internal/components/assert"
	"ltbxd-scraper/internal/components/chrono"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"ltbxd-scraper/pkg/migrations"
	"time"

	"github.com/google/uuid"
)

//go:embed schema.sql
var Schema string

// Query is a stored query without its items.
type Query struct {
	Id           string
	Kind         string
	Input        string
	Status       letterboxd.Status
	ErrorMessage string
	ItemCount    int
	CreatedAt    time.Time
}

type Store struct {
	db    *sql.DB
	clock chrono.API
}

// Open opens (and creates if needed) the export db at path.
func Open(path string, clock chrono.API) (Store, error) {
	assert.NotEmptyStr(path)
	db, err := migrations.OpenAndMigrateDB(Schema, path)
	if err != nil {
		return Store{}, err
	}
	return NewStore(db, clock), nil
}

func NewStore(db *sql.DB, clock chrono.API) Store {
	assert.NotNil(db)
	assert.NotNil(clock)
	return Store{db: db, clock: clock}
}

func (s Store) Close() error {
	return s.db.Close()
}

// makeTx mirrors a (tx, discard, commit) triple so callers can defer discard.
func (s Store) makeTx(ctx context.Context) (tx *sql.Tx, discard func(), commit func() error, err error) {
	tx, err = s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx,
		func() { tx.Rollback() },
		tx.Commit,
		nil
}

func encodeList(values []string) (*string, error) {
	if values == nil {
		return nil, nil
	}
	out, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	encoded := string(out)
	return &encoded, nil
}

func decodeList(encoded sql.NullString) ([]string, error) {
	if !encoded.Valid {
		return nil, nil
	}
	var values []string
	err := json.Unmarshal([]byte(encoded.String), &values)
	return values, err
}

func saveResult[T any](
	ctx context.Context,
	s Store,
	kind, input string,
	result letterboxd.QueryResult[T],
	insert func(tx *sql.Tx, queryId string, position int, item T) error,
) (string, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return "", err
	}
	defer discard()

	queryId := uuid.NewString()
	_, err = tx.ExecContext(
		ctx,
		`insert into query(id, kind, input, status, error_message, item_count, created_at)
		values (?, ?, ?, ?, ?, ?, ?)`,
		queryId,
		kind,
		input,
		string(result.Status),
		sql.NullString{String: result.ErrorMessage, Valid: result.ErrorMessage != ""},
		len(result.Data),
		s.clock.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert query: %w", err)
	}

	for i, item := range result.Data {
		err = insert(tx, queryId, i, item)
		if err != nil {
			return "", fmt.Errorf("insert %s item %d: %w", kind, i, err)
		}
	}

	err = commit()
	if err != nil {
		return "", err
	}
	return queryId, nil
}

// SaveFilms stores the result of a watchlist or list query and returns its id.
func (s Store) SaveFilms(ctx context.Context, kind, input string, result letterboxd.QueryResult[letterboxd.Film]) (string, error) {
	return saveResult(ctx, s, kind, input, result, func(tx *sql.Tx, queryId string, position int, f letterboxd.Film) error {
		_, err := tx.ExecContext(
			ctx,
			`insert into film(query_id, position, imdb_id, name, slug, type, poster)
			values (?, ?, ?, ?, ?, ?, ?)`,
			queryId, position, f.ID, f.Name, f.Slug, f.Type, f.Poster,
		)
		return err
	})
}

// SaveLists stores the result of a user lists query and returns its id.
func (s Store) SaveLists(ctx context.Context, input string, result letterboxd.QueryResult[letterboxd.ListCover]) (string, error) {
	return saveResult(ctx, s, string(letterboxd.CONTENT_LISTS), input, result, func(tx *sql.Tx, queryId string, position int, l letterboxd.ListCover) error {
		posters, err := encodeList(l.Posters)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			`insert into list_cover(query_id, position, title, url, posters, summary, amount)
			values (?, ?, ?, ?, ?, ?, ?)`,
			queryId, position, l.Title, l.Url, posters, l.Summary, l.Amount,
		)
		return err
	})
}

// SaveSearch stores the result of a film search and returns its id.
func (s Store) SaveSearch(ctx context.Context, input string, result letterboxd.QueryResult[letterboxd.SearchFilm]) (string, error) {
	return saveResult(ctx, s, string(letterboxd.CONTENT_SEARCH), input, result, func(tx *sql.Tx, queryId string, position int, f letterboxd.SearchFilm) error {
		alternatives, err := encodeList(f.AlternativeTitles)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			`insert into search_film(query_id, position, title, year, alternative_titles, poster, director)
			values (?, ?, ?, ?, ?, ?, ?)`,
			queryId, position, f.Title, f.Year, alternatives, f.Poster, f.Director,
		)
		return err
	})
}

// Queries returns the most recent stored queries, newest first.
func (s Store) Queries(ctx context.Context, limit int) ([]Query, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select id, kind, input, status, error_message, item_count, created_at
		from query order by created_at desc, rowid desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Query
	for rows.Next() {
		var q Query
		var errorMessage sql.NullString
		var createdAt int64
		err = rows.Scan(&q.Id, &q.Kind, &q.Input, &q.Status, &errorMessage, &q.ItemCount, &createdAt)
		if err != nil {
			return nil, err
		}
		q.ErrorMessage = errorMessage.String
		q.CreatedAt = time.Unix(createdAt, 0).In(s.clock.Location())
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullable(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}

// Films returns the films stored under queryId in their original order.
func (s Store) Films(ctx context.Context, queryId string) ([]letterboxd.Film, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select imdb_id, name, slug, type, poster from film
		where query_id = ? order by position`,
		queryId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []letterboxd.Film{}
	for rows.Next() {
		var f letterboxd.Film
		var id, slug, poster sql.NullString
		err = rows.Scan(&id, &f.Name, &slug, &f.Type, &poster)
		if err != nil {
			return nil, err
		}
		f.ID = nullable(id)
		f.Slug = slug.String
		f.Poster = nullable(poster)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Lists returns the list covers stored under queryId in their original order.
func (s Store) Lists(ctx context.Context, queryId string) ([]letterboxd.ListCover, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select title, url, posters, summary, amount from list_cover
		where query_id = ? order by position`,
		queryId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []letterboxd.ListCover{}
	for rows.Next() {
		var l letterboxd.ListCover
		var posters, summary, amount sql.NullString
		err = rows.Scan(&l.Title, &l.Url, &posters, &summary, &amount)
		if err != nil {
			return nil, err
		}
		l.Posters, err = decodeList(posters)
		if err != nil {
			return nil, err
		}
		l.Summary = nullable(summary)
		l.Amount = nullable(amount)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Search returns the search results stored under queryId in their original order.
func (s Store) Search(ctx context.Context, queryId string) ([]letterboxd.SearchFilm, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select title, year, alternative_titles, poster, director from search_film
		where query_id = ? order by position`,
		queryId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []letterboxd.SearchFilm{}
	for rows.Next() {
		var f letterboxd.SearchFilm
		var alternatives, poster, director sql.NullString
		err = rows.Scan(&f.Title, &f.Year, &alternatives, &poster, &director)
		if err != nil {
			return nil, err
		}
		f.AlternativeTitles, err = decodeList(alternatives)
		if err != nil {
			return nil, err
		}
		f.Poster = nullable(poster)
		f.Director = nullable(director)
		out = append(out, f)
	}
	return out, rows.Err()
}
