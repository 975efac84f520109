package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// diveTableName は検査対象のダイブ履歴テーブル名。
const diveTableName = "dive_history"

// Detect はinformation_schemaから実テーブルのカラム一覧を1回だけ読み取り、
// 対応するバリアントを構築する。メタデータクエリが失敗した場合は
// フォールバック用のデフォルト（Modern）とエラーを返す。
func Detect(ctx context.Context, db *sql.DB) (Variant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1`,
		diveTableName,
	)
	if err != nil {
		return Modern(), fmt.Errorf("failed to inspect dive table columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Modern(), fmt.Errorf("failed to scan column name: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return Modern(), fmt.Errorf("failed to read column metadata: %w", err)
	}

	return fromColumns(cols), nil
}

// fromColumns はカラム名の集合からバリアントを組み立てる。
// 優先順位は歴史的に新しい名称が先。どの候補にも一致しない場合は
// そのフィールドのデフォルト名を採用する。
func fromColumns(cols map[string]bool) Variant {
	v := Variant{Name: "detected"}

	switch {
	case cols["user_id"]:
		v.OwnerColumn = "user_id"
	case cols["id_number"]:
		v.OwnerColumn = "id_number"
	default:
		v.OwnerColumn = "user_id"
	}

	switch {
	case cols["dive_site"]:
		v.SiteColumn = "dive_site"
	case cols["site"]:
		v.SiteColumn = "site"
	case cols["location"]:
		v.SiteColumn = "location"
	default:
		v.SiteColumn = "site"
	}

	switch {
	case cols["depth"]:
		v.DepthColumn = "depth"
	case cols["max_depth"]:
		v.DepthColumn = "max_depth"
	case cols["max_depth_m"]:
		v.DepthColumn = "max_depth_m"
	default:
		v.DepthColumn = "depth"
	}

	switch {
	case cols["duration"]:
		v.DurationColumn = "duration"
	case cols["duration_min"]:
		v.DurationColumn = "duration_min"
	default:
		v.DurationColumn = "duration"
	}

	v.HasDiveNumber = cols["dive_number"]
	v.HasDiveTimestamp = cols["dive_timestamp"]
	v.HasConditions = cols["conditions"]

	return v
}

// Resolve は設定値（modern/legacy/auto）からバリアントを確定する。
// autoの場合は起動時に1回だけDetectを実行し、検査に失敗したときは
// デフォルトのModernにフォールバックしてその旨をログに残す。
// リクエストを失敗させることはない。
func Resolve(ctx context.Context, db *sql.DB, configured string, logger *slog.Logger) Variant {
	if configured != "auto" {
		v, err := FromName(configured)
		if err != nil {
			logger.Warn("unknown schema variant configured, falling back to default",
				slog.String("configured", configured),
				slog.String("fallback", "modern"),
			)
			return Modern()
		}
		return v
	}

	v, err := Detect(ctx, db)
	if err != nil {
		logger.Warn("schema inspection failed, falling back to default column set",
			slog.String("error", err.Error()),
			slog.String("fallback", "modern"),
		)
		return Modern()
	}

	logger.Info("schema variant detected",
		slog.String("owner_column", v.OwnerColumn),
		slog.String("site_column", v.SiteColumn),
		slog.String("depth_column", v.DepthColumn),
		slog.Bool("has_dive_number", v.HasDiveNumber),
		slog.Bool("has_dive_timestamp", v.HasDiveTimestamp),
	)
	return v
}
