package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/divelog/internal/model"
)

// siteColumns はdive_sitesテーブルの読み取りカラムリスト。
const siteColumns = "site_id, name, location, latitude, longitude, description, created_at, updated_at"

// PostgresSiteRepo はPostgreSQLを使用したダイブサイトリポジトリ。
type PostgresSiteRepo struct {
	db *sql.DB
}

// NewPostgresSiteRepo はPostgresSiteRepoを生成する。
func NewPostgresSiteRepo(db *sql.DB) *PostgresSiteRepo {
	return &PostgresSiteRepo{db: db}
}

// ListAll は全ダイブサイトを名前の昇順で返す。
func (r *PostgresSiteRepo) ListAll(ctx context.Context) ([]*model.DiveSite, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+siteColumns+" FROM dive_sites ORDER BY name ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dive sites: %w", err)
	}
	defer rows.Close()

	var sites []*model.DiveSite
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dive site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dive sites: %w", err)
	}

	return sites, nil
}

// FindByID は指定IDのサイトを取得する。見つからない場合はnilを返す。
func (r *PostgresSiteRepo) FindByID(ctx context.Context, id int64) (*model.DiveSite, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+siteColumns+" FROM dive_sites WHERE site_id = $1",
		id,
	)

	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dive site: %w", err)
	}

	return site, nil
}

// scanSite はsiteColumnsの順序で1行を読み取る。
func scanSite(s rowScanner) (*model.DiveSite, error) {
	site := &model.DiveSite{}
	var desc sql.NullString

	err := s.Scan(&site.ID, &site.Name, &site.Location, &site.Latitude,
		&site.Longitude, &desc, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return nil, err
	}

	site.Description = desc.String
	return site, nil
}

// compile-time interface check
var _ SiteRepository = (*PostgresSiteRepo)(nil)
