package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/schema"
)

// maxAllocateRetries は自動採番したダイブ番号が一意制約に衝突した場合の
// 再試行回数上限。衝突は同一所有者への並行挿入時のみ起こる。
const maxAllocateRetries = 3

// PostgresDiveRepo はPostgreSQLを使用したダイブ記録リポジトリ。
// カラム構成は起動時に注入されたスキーマバリアントで確定しており、
// リクエストごとのメタデータ照会は行わない。
type PostgresDiveRepo struct {
	db      *sql.DB
	variant schema.Variant
}

// NewPostgresDiveRepo はPostgresDiveRepoを生成する。
func NewPostgresDiveRepo(db *sql.DB, variant schema.Variant) *PostgresDiveRepo {
	return &PostgresDiveRepo{db: db, variant: variant}
}

// Create はダイブ記録を1行追加する。
// ダイブ番号が省略されスキーマにdive_numberカラムが存在する場合、
// 採番サブクエリを含む単一INSERT文で原子的に割り当てる。並行挿入で
// 一意制約に衝突した計算値は限定回数だけ再試行する。呼び出し側が
// 明示指定した番号の衝突は検証エラーとして返す。
func (r *PostgresDiveRepo) Create(ctx context.Context, rec *model.DiveRecord) (*model.DiveRecord, error) {
	explicitNumber := rec.DiveNumber != nil

	var lastErr error
	for attempt := 0; attempt <= maxAllocateRetries; attempt++ {
		query, args := buildDiveInsert(r.variant, rec)
		created, err := scanDiveRecord(r.variant, r.db.QueryRowContext(ctx, query, args...))
		if err == nil {
			return created, nil
		}

		if isUniqueViolation(err) {
			if explicitNumber {
				return nil, model.NewDuplicateDiveNumberError(*rec.DiveNumber)
			}
			lastErr = err
			continue
		}

		return nil, fmt.Errorf("failed to insert dive record: %w", err)
	}

	return nil, fmt.Errorf("failed to allocate dive number after %d retries: %w", maxAllocateRetries, lastErr)
}

// ListByOwner は所有者キーに一致する全記録をダイブ日の降順、
// 同日の場合は挿入順の降順で返す。
func (r *PostgresDiveRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*model.DiveRecord, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1 ORDER BY dive_date DESC, id DESC",
		selectColumns(r.variant), diveTable, r.variant.OwnerColumn,
	)

	rows, err := r.db.QueryContext(ctx, query, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list dive records: %w", err)
	}
	defer rows.Close()

	var records []*model.DiveRecord
	for rows.Next() {
		rec, err := scanDiveRecord(r.variant, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dive record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dive records: %w", err)
	}

	return records, nil
}

// DeleteByOwnerTx は指定トランザクション内で所有者の全ダイブ記録を削除する。
// 0行削除は成功。テーブルが存在しないデプロイもエラーにしない。
// Postgresでは文の失敗がトランザクション全体を中断させるため、
// テーブル不存在の許容にはセーブポイントを使用する。
func (r *PostgresDiveRepo) DeleteByOwnerTx(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT delete_dives"); err != nil {
		return 0, fmt.Errorf("failed to create savepoint: %w", err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", diveTable, r.variant.OwnerColumn)
	result, err := tx.ExecContext(ctx, query, ownerKey)
	if err != nil {
		if isUndefinedTable(err) {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT delete_dives"); rbErr != nil {
				return 0, fmt.Errorf("failed to rollback to savepoint: %w", rbErr)
			}
			return 0, nil
		}
		return 0, fmt.Errorf("failed to delete dive records: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// isUniqueViolation は一意制約違反（SQLSTATE 23505）かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isUndefinedTable はテーブル不存在（SQLSTATE 42P01）かどうかを判定する。
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}

// compile-time interface check
var _ DiveRepository = (*PostgresDiveRepo)(nil)
