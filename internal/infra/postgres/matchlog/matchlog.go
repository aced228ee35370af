package infra_postgres_matchlog

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nar3s/flickpick/internal/model"
)

// Driver appends confirmed matches to Postgres. Rooms themselves are
// memory-only; this is an archive of outcomes, not session state.
type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type matchDTO struct {
	RoomCode  string    `db:"room_code"`
	MovieID   int       `db:"movie_id"`
	Title     string    `db:"title"`
	MatchedAt time.Time `db:"matched_at"`
}

func (d *Driver) Record(ctx context.Context, code model.RoomCode, movie model.Movie) error {
	query := `
		INSERT INTO matches (room_code, movie_id, title, matched_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := d.db.ExecContext(ctx, query, code, movie.ID, movie.Title)
	return err
}

type ArchivedMatch struct {
	MovieID   int       `json:"movieId"`
	Title     string    `json:"title"`
	MatchedAt time.Time `json:"matchedAt"`
}

func (d *Driver) List(ctx context.Context, code model.RoomCode) ([]ArchivedMatch, error) {
	var rows []matchDTO

	query := `
		SELECT room_code, movie_id, title, matched_at
		FROM matches
		WHERE room_code = $1
		ORDER BY matched_at
	`

	if err := d.db.SelectContext(ctx, &rows, query, code); err != nil {
		return nil, err
	}

	matches := make([]ArchivedMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, ArchivedMatch{
			MovieID:   r.MovieID,
			Title:     r.Title,
			MatchedAt: r.MatchedAt,
		})
	}

	return matches, nil
}
