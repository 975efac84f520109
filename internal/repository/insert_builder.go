package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/schema"
)

// diveTable はダイブ記録テーブル名。カラム名はバリアントで変わるが
// テーブル名は全デプロイで共通。
const diveTable = "dive_history"

// buildDiveInsert はバリアントと入力からパラメータ化INSERT文を組み立てる。
// カラムリストは「所有者キーカラム + 固定カラム + バリアントに存在し
// かつ値の決定方法があるオプショナルカラム」の和集合。
//
// ダイブ番号の採番は文中のサブクエリとして埋め込み、単一文として
// 原子的に評価させる。2つの別文に分けたSELECT max→INSERTは並行時に
// 同番号を生むため使わない。番号の衝突は所有者+番号の一意制約が検出する。
func buildDiveInsert(v schema.Variant, rec *model.DiveRecord) (string, []any) {
	cols := []string{v.OwnerColumn, "dive_date", "dive_type", v.SiteColumn, v.DepthColumn, v.DurationColumn, "weight", "body_diver", "description"}
	args := []any{
		rec.OwnerKey,
		rec.DiveDate,
		rec.DiveType,
		nullString(rec.Site),
		nullFloat(rec.MaxDepth),
		nullInt(rec.DurationMinutes),
		nullFloat(rec.Weight),
		nullString(rec.BodyDiver),
		nullString(rec.Description),
	}
	exprs := make([]string, len(args))
	for i := range args {
		exprs[i] = fmt.Sprintf("$%d", i+1)
	}

	if v.HasDiveNumber {
		args = append(args, nullInt(rec.DiveNumber))
		cols = append(cols, "dive_number")
		// $1 は所有者キー。省略時は同一所有者の最大値+1（記録なしは1）。
		exprs = append(exprs, fmt.Sprintf(
			"COALESCE($%d, (SELECT COALESCE(MAX(dive_number), 0) + 1 FROM %s WHERE %s = $1))",
			len(args), diveTable, v.OwnerColumn,
		))
	}

	if v.HasDiveTimestamp {
		args = append(args, nullTime(rec.DiveTimestamp))
		cols = append(cols, "dive_timestamp")
		exprs = append(exprs, fmt.Sprintf("COALESCE($%d, NOW())", len(args)))
	}

	if v.HasConditions && len(rec.Conditions) > 0 {
		args = append(args, encodeConditions(rec.Conditions))
		cols = append(cols, "conditions")
		exprs = append(exprs, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		diveTable,
		strings.Join(cols, ", "),
		strings.Join(exprs, ", "),
		selectColumns(v),
	)
	return query, args
}

// selectColumns はバリアントに応じたSELECT/RETURNING用のカラムリストを返す。
// scanDiveRecordと同じ順序であること。
func selectColumns(v schema.Variant) string {
	cols := []string{"id", v.OwnerColumn, "dive_date", "dive_type", v.SiteColumn, v.DepthColumn, v.DurationColumn, "weight", "body_diver", "description"}
	if v.HasDiveNumber {
		cols = append(cols, "dive_number")
	}
	if v.HasDiveTimestamp {
		cols = append(cols, "dive_timestamp")
	}
	if v.HasConditions {
		cols = append(cols, "conditions")
	}
	return strings.Join(cols, ", ")
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDiveRecord はselectColumnsの順序で1行を読み取る。
func scanDiveRecord(v schema.Variant, s rowScanner) (*model.DiveRecord, error) {
	rec := &model.DiveRecord{}
	var (
		site       sql.NullString
		depth      sql.NullFloat64
		duration   sql.NullInt64
		weight     sql.NullFloat64
		bodyDiver  sql.NullString
		desc       sql.NullString
		diveNumber sql.NullInt64
		diveTS     sql.NullTime
		conditions sql.NullString
	)

	dest := []any{&rec.ID, &rec.OwnerKey, &rec.DiveDate, &rec.DiveType, &site, &depth, &duration, &weight, &bodyDiver, &desc}
	if v.HasDiveNumber {
		dest = append(dest, &diveNumber)
	}
	if v.HasDiveTimestamp {
		dest = append(dest, &diveTS)
	}
	if v.HasConditions {
		dest = append(dest, &conditions)
	}

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	rec.Site = site.String
	if depth.Valid {
		d := depth.Float64
		rec.MaxDepth = &d
	}
	if duration.Valid {
		m := int(duration.Int64)
		rec.DurationMinutes = &m
	}
	if weight.Valid {
		w := weight.Float64
		rec.Weight = &w
	}
	rec.BodyDiver = bodyDiver.String
	rec.Description = desc.String
	if diveNumber.Valid {
		n := int(diveNumber.Int64)
		rec.DiveNumber = &n
	}
	if diveTS.Valid {
		t := diveTS.Time
		rec.DiveTimestamp = &t
	}
	if conditions.Valid && conditions.String != "" {
		rec.Conditions = decodeConditions(conditions.String)
	}

	return rec, nil
}

// encodeConditions はタグリストをJSONテキストへシリアライズする。
func encodeConditions(tags []string) string {
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeConditions は格納テキストをタグリストへ復元する。
// 旧データはプレーン文字列の可能性があるため、JSONとして読めない場合は
// 全体を単一タグとして扱う。
func decodeConditions(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{raw}
	}
	return tags
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
