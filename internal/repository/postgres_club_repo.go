package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/divelog/internal/model"
)

// clubColumns はdive_clubsテーブルの読み取りカラムリスト。
// 歴史的なカラム名の揺れはマイグレーションで吸収済みのため、ここでは固定。
const clubColumns = "club_id, name, location, description, contact_email, contact_phone, website, image_url, rating, created_at"

// PostgresClubRepo はPostgreSQLを使用したダイブクラブリポジトリ。
type PostgresClubRepo struct {
	db *sql.DB
}

// NewPostgresClubRepo はPostgresClubRepoを生成する。
func NewPostgresClubRepo(db *sql.DB) *PostgresClubRepo {
	return &PostgresClubRepo{db: db}
}

// ListAll は全ダイブクラブを名前の昇順で返す。
func (r *PostgresClubRepo) ListAll(ctx context.Context) ([]*model.DiveClub, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+clubColumns+" FROM dive_clubs ORDER BY name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dive clubs: %w", err)
	}
	defer rows.Close()

	var clubs []*model.DiveClub
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dive club: %w", err)
		}
		clubs = append(clubs, club)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dive clubs: %w", err)
	}

	return clubs, nil
}

// FindByID は指定IDのクラブを取得する。見つからない場合はnilを返す。
func (r *PostgresClubRepo) FindByID(ctx context.Context, id int64) (*model.DiveClub, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+clubColumns+" FROM dive_clubs WHERE club_id = $1",
		id,
	)

	club, err := scanClub(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dive club: %w", err)
	}

	return club, nil
}

// scanClub はclubColumnsの順序で1行を読み取る。
func scanClub(s rowScanner) (*model.DiveClub, error) {
	club := &model.DiveClub{}
	var location, desc, email, phone, website, imageURL sql.NullString
	var rating sql.NullFloat64

	err := s.Scan(&club.ID, &club.Name, &location, &desc, &email, &phone,
		&website, &imageURL, &rating, &club.CreatedAt)
	if err != nil {
		return nil, err
	}

	club.Location = location.String
	club.Description = desc.String
	club.ContactEmail = email.String
	club.ContactPhone = phone.String
	club.Website = website.String
	club.ImageURL = imageURL.String
	if rating.Valid {
		v := rating.Float64
		club.Rating = &v
	}
	return club, nil
}

// compile-time interface check
var _ ClubRepository = (*PostgresClubRepo)(nil)
