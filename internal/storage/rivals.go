package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// MaxUserSearchResults caps SearchUsers.
const MaxUserSearchResults = 10

// arenaFetchLimit bounds concurrent max-lift queries while building an arena.
const arenaFetchLimit = 4

// ErrSelfRival is returned when a user tries to add themselves as a rival.
var ErrSelfRival = errors.New("cannot add yourself as a rival")

// UserProfile is the public view of a user in rival search and comparisons.
type UserProfile struct {
	ID          int    `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Rival is an accepted rival with their core-lift maxes.
type Rival struct {
	UserProfile
	MaxLifts []MaxLift `json:"max_lifts"`
}

// Arena compares a user's core lifts with each of their accepted rivals.
type Arena struct {
	Rivals       []Rival   `json:"rivals"`
	UserMaxLifts []MaxLift `json:"user_max_lifts"`
}

// ArenaSource is what BuildArena reads from. *DB satisfies it.
type ArenaSource interface {
	ListRivals(ctx context.Context, userID int) ([]UserProfile, error)
	GetMaxLifts(ctx context.Context, userID int, exerciseIDs []string) ([]MaxLift, error)
}

// BuildArena loads the accepted rivals of userID and the CoreExercises maxes
// of the user and of every rival.
func BuildArena(ctx context.Context, src ArenaSource, userID int) (*Arena, error) {
	rivals, err := src.ListRivals(ctx, userID)
	if err != nil {
		return nil, err
	}

	arena := &Arena{Rivals: make([]Rival, len(rivals))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(arenaFetchLimit)
	g.Go(func() error {
		lifts, err := src.GetMaxLifts(gctx, userID, CoreExercises)
		if err != nil {
			return err
		}
		arena.UserMaxLifts = lifts
		return nil
	})
	for i, r := range rivals {
		arena.Rivals[i].UserProfile = r
		g.Go(func() error {
			lifts, err := src.GetMaxLifts(gctx, r.ID, CoreExercises)
			if err != nil {
				return fmt.Errorf("rival %d: %w", r.ID, err)
			}
			arena.Rivals[i].MaxLifts = lifts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return arena, nil
}

// GetArena is BuildArena over the database.
func (db *DB) GetArena(ctx context.Context, userID int) (*Arena, error) {
	return BuildArena(ctx, db, userID)
}

// ListRivals returns the accepted rivals of userID ordered by display name.
func (db *DB) ListRivals(ctx context.Context, userID int) ([]UserProfile, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT u.id, u.login, u.display_name
		 FROM rivalries r
		 JOIN users u ON u.id = r.rival_id
		 WHERE r.user_id = $1 AND r.status = 'accepted'
		 ORDER BY u.display_name, u.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying rivals: %w", err)
	}
	return scanProfiles(rows)
}

// SearchUsers finds users whose login or display name contains query,
// case-insensitively, excluding userID. At most MaxUserSearchResults rows.
func (db *DB) SearchUsers(ctx context.Context, userID int, query string) ([]UserProfile, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, login, display_name
		 FROM users
		 WHERE (login ILIKE $1 OR display_name ILIKE $1) AND id <> $2
		 ORDER BY login
		 LIMIT $3`,
		"%"+escapeLike(query)+"%", userID, MaxUserSearchResults)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return scanProfiles(rows)
}

// AddRival records an accepted rivalry between userID and rivalID in both
// directions. Adding an existing rival again is a no-op.
func (db *DB) AddRival(ctx context.Context, userID, rivalID int) error {
	if userID == rivalID {
		return ErrSelfRival
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, rivalID).Scan(&exists); err != nil {
		return fmt.Errorf("checking rival: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO rivalries (user_id, rival_id, status, accepted_at)
		 VALUES ($1, $2, 'accepted', NOW()), ($2, $1, 'accepted', NOW())
		 ON CONFLICT (user_id, rival_id) DO UPDATE
		 	SET status = 'accepted', accepted_at = COALESCE(rivalries.accepted_at, NOW())`,
		userID, rivalID)
	if err != nil {
		return fmt.Errorf("inserting rivalry: %w", err)
	}
	return tx.Commit(ctx)
}

func scanProfiles(rows pgx.Rows) ([]UserProfile, error) {
	defer rows.Close()
	out := []UserProfile{}
	for rows.Next() {
		var p UserProfile
		if err := rows.Scan(&p.ID, &p.Login, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
