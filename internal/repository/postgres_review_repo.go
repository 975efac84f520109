package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/divelog/internal/model"
)

// reviewColumns はreviewsテーブルの読み取りカラムリスト。
const reviewColumns = "review_id, site_id, club_id, user_name, rating, comment, created_at"

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// Create はレビューを作成し、採番済みIDと作成時刻を含む行を返す。
func (r *PostgresReviewRepo) Create(ctx context.Context, rev *model.ReviewRecord) (*model.ReviewRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO reviews (site_id, club_id, user_name, rating, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+reviewColumns,
		rev.SiteID, rev.ClubID, rev.AuthorName, rev.Rating, nullString(rev.Comment),
	)

	created, err := scanReview(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}
	return created, nil
}

// ListBySite はサイトのレビュー一覧を作成時刻の降順で返す。
func (r *PostgresReviewRepo) ListBySite(ctx context.Context, siteID int64) ([]*model.ReviewRecord, error) {
	return r.list(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE site_id = $1 ORDER BY created_at DESC",
		siteID,
	)
}

// ListByClub はクラブのレビュー一覧を作成時刻の降順で返す。
func (r *PostgresReviewRepo) ListByClub(ctx context.Context, clubID int64) ([]*model.ReviewRecord, error) {
	return r.list(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE club_id = $1 ORDER BY created_at DESC",
		clubID,
	)
}

// RatingSummaryForSite はサイトの平均評価とレビュー数を返す。
func (r *PostgresReviewRepo) RatingSummaryForSite(ctx context.Context, siteID int64) (float64, int, error) {
	var avg sql.NullFloat64
	var count int

	err := r.db.QueryRowContext(ctx,
		"SELECT AVG(rating), COUNT(*) FROM reviews WHERE site_id = $1",
		siteID,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute rating summary: %w", err)
	}

	return avg.Float64, count, nil
}

// AnonymizeByAuthorTx は作者名が完全一致する全レビューの作者名を
// 匿名化センチネルへ置換する。評価・コメント・作成時刻は変更しない。
// 0件一致は成功。テーブル不存在もセーブポイントで許容する。
func (r *PostgresReviewRepo) AnonymizeByAuthorTx(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT anonymize_reviews"); err != nil {
		return 0, fmt.Errorf("failed to create savepoint: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE reviews SET user_name = $1 WHERE user_name = $2",
		model.AnonymousAuthor, authorName,
	)
	if err != nil {
		if isUndefinedTable(err) {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT anonymize_reviews"); rbErr != nil {
				return 0, fmt.Errorf("failed to rollback to savepoint: %w", rbErr)
			}
			return 0, nil
		}
		return 0, fmt.Errorf("failed to anonymize reviews: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func (r *PostgresReviewRepo) list(ctx context.Context, query string, arg any) ([]*model.ReviewRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.ReviewRecord
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reviews: %w", err)
	}

	return reviews, nil
}

// scanReview はreviewColumnsの順序で1行を読み取る。
func scanReview(s rowScanner) (*model.ReviewRecord, error) {
	rev := &model.ReviewRecord{}
	var siteID, clubID sql.NullInt64
	var comment sql.NullString

	err := s.Scan(&rev.ID, &siteID, &clubID, &rev.AuthorName, &rev.Rating, &comment, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}

	if siteID.Valid {
		v := siteID.Int64
		rev.SiteID = &v
	}
	if clubID.Valid {
		v := clubID.Int64
		rev.ClubID = &v
	}
	rev.Comment = comment.String
	return rev, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
