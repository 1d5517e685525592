package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Andrew-Sencil/GBP/internal/domain"
)

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// SaveAnalysis upserts the analysis row and its subscore breakdown within a
// single transaction. Listings are keyed by place_id; a re-analysis replaces
// the previous result.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, b *domain.AnalysisBundle) error {
	if b.Business.PlaceID == "" {
		return fmt.Errorf("analysis bundle has no place_id to key on")
	}

	businessJSON, err := json.Marshal(b.Business)
	if err != nil {
		return fmt.Errorf("encoding business record: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var analysisID int
	err = tx.QueryRow(ctx,
		`INSERT INTO analyses (place_id, run_id, title, final_score,
		   owner_photos, customer_photos, unknown_photos, photos_analyzed,
		   recent_posts, recent_reviews, narrative, business, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (place_id) DO UPDATE SET
		   run_id = EXCLUDED.run_id, title = EXCLUDED.title,
		   final_score = EXCLUDED.final_score,
		   owner_photos = EXCLUDED.owner_photos,
		   customer_photos = EXCLUDED.customer_photos,
		   unknown_photos = EXCLUDED.unknown_photos,
		   photos_analyzed = EXCLUDED.photos_analyzed,
		   recent_posts = EXCLUDED.recent_posts,
		   recent_reviews = EXCLUDED.recent_reviews,
		   narrative = EXCLUDED.narrative, business = EXCLUDED.business,
		   analyzed_at = EXCLUDED.analyzed_at, updated_at = NOW()
		 RETURNING id`,
		b.Business.PlaceID, b.RunID, b.Business.Title, b.Score.FinalScore,
		b.Attribution.OwnerCount, b.Attribution.CustomerCount,
		b.Attribution.UnknownCount, b.Attribution.TotalAnalyzed,
		b.RecentPostCount, b.RecentReviewCount, b.Narrative, businessJSON,
		b.AnalyzedAt,
	).Scan(&analysisID)
	if err != nil {
		return err
	}

	// Batch upsert the breakdown rows
	if len(b.Score.SubScores) > 0 {
		batch := &pgx.Batch{}
		for i, sub := range b.Score.SubScores {
			batch.Queue(`INSERT INTO analysis_subscores (analysis_id, name, value, weight, position)
			             VALUES ($1, $2, $3, $4, $5)
			             ON CONFLICT (analysis_id, name) DO UPDATE SET
			               value = EXCLUDED.value, weight = EXCLUDED.weight, position = EXCLUDED.position`,
				analysisID, sub.Name, sub.Value, sub.Weight, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetAnalysis retrieves the latest stored bundle for a place.
func (s *PostgresStore) GetAnalysis(ctx context.Context, placeID string) (*domain.AnalysisBundle, error) {
	b := &domain.AnalysisBundle{}
	var analysisID int
	var businessJSON []byte

	err := s.db.QueryRow(ctx,
		`SELECT id, run_id, final_score, owner_photos, customer_photos,
		   unknown_photos, photos_analyzed, recent_posts, recent_reviews,
		   narrative, business, analyzed_at
		 FROM analyses WHERE place_id = $1`,
		placeID,
	).Scan(&analysisID, &b.RunID, &b.Score.FinalScore,
		&b.Attribution.OwnerCount, &b.Attribution.CustomerCount,
		&b.Attribution.UnknownCount, &b.Attribution.TotalAnalyzed,
		&b.RecentPostCount, &b.RecentReviewCount, &b.Narrative,
		&businessJSON, &b.AnalyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(businessJSON, &b.Business); err != nil {
		return nil, fmt.Errorf("decoding stored business record: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT name, value, weight FROM analysis_subscores
		 WHERE analysis_id = $1 ORDER BY position`,
		analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sub domain.SubScore
		if err := rows.Scan(&sub.Name, &sub.Value, &sub.Weight); err != nil {
			return nil, err
		}
		b.Score.SubScores = append(b.Score.SubScores, sub)
	}
	return b, rows.Err()
}

// UpdateNarrative replaces the stored narrative for a place.
func (s *PostgresStore) UpdateNarrative(ctx context.Context, placeID, narrative string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE analyses SET narrative = $2, updated_at = NOW() WHERE place_id = $1`,
		placeID, narrative)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
