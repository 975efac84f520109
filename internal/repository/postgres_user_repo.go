package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/divelog/internal/model"
)

// userColumns はusersテーブルの読み取りカラムリスト。
const userColumns = "id, first_name, last_name, email, id_number, profile_image, license_front, license_back"

// PostgresUserRepo はPostgreSQLを使用したユーザーアカウントリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.UserAccount, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		id,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// UpdateProfile はnilでないフィールドのみをCOALESCEで部分更新する。
// 対象が存在しない場合はnilを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id int64, patch *ProfilePatch) (*model.UserAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET
		   first_name    = COALESCE($1, first_name),
		   last_name     = COALESCE($2, last_name),
		   email         = COALESCE($3, email),
		   id_number     = COALESCE($4, id_number),
		   profile_image = COALESCE($5, profile_image),
		   license_front = COALESCE($6, license_front),
		   license_back  = COALESCE($7, license_back)
		 WHERE id = $8
		 RETURNING `+userColumns,
		patch.FirstName, patch.LastName, patch.Email, patch.IDNumber,
		patch.ProfileImage, patch.LicenseFront, patch.LicenseBack, id,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	return user, nil
}

// DeleteByIDTx は指定トランザクション内でユーザー行を削除し、削除行数を返す。
// 0行の判定（既に存在しない＝削除失敗）は呼び出し側の責務。
func (r *PostgresUserRepo) DeleteByIDTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// scanUser はuserColumnsの順序で1行を読み取る。
func scanUser(s rowScanner) (*model.UserAccount, error) {
	user := &model.UserAccount{}
	var profileImage, licenseFront, licenseBack sql.NullString

	err := s.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.IDNumber, &profileImage, &licenseFront, &licenseBack)
	if err != nil {
		return nil, err
	}

	user.ProfileImage = profileImage.String
	user.LicenseFront = licenseFront.String
	user.LicenseBack = licenseBack.String
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
