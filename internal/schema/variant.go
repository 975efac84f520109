// Package schema はダイブ履歴テーブルのスキーマバリアントを提供する。
//
// テーブルの形はデプロイ履歴の中でカラム名が変遷しており（所有者キー、サイト、
// 深度の各カラムに複数の歴史的名称がある）、サービスはどの形に対しても
// コード分岐なしで動作する必要がある。バリアントはプロセス起動時に1回だけ
// 決定されるイミュータブルな値であり、依存性注入で永続化層へ明示的に渡される。
// リクエストごとの再評価は行わない。テーブルの形が変わった場合は
// プロセスの再起動が必要になる。
package schema

import "fmt"

// Variant はダイブ履歴テーブルの論理フィールドと実カラム名の対応を表す。
type Variant struct {
	Name string

	OwnerColumn    string // 所有者キー: "user_id" または "id_number"
	SiteColumn     string // サイト名: "dive_site" | "site" | "location"
	DepthColumn    string // 最大深度: "depth" | "max_depth" | "max_depth_m"
	DurationColumn string // 潜水時間: "duration" | "duration_min"

	HasDiveNumber    bool
	HasDiveTimestamp bool
	HasConditions    bool
}

// Modern は現行デプロイのカラム構成を返す。自動検出失敗時のフォールバック先。
func Modern() Variant {
	return Variant{
		Name:             "modern",
		OwnerColumn:      "user_id",
		SiteColumn:       "dive_site",
		DepthColumn:      "depth",
		DurationColumn:   "duration",
		HasDiveNumber:    true,
		HasDiveTimestamp: true,
		HasConditions:    true,
	}
}

// Legacy は旧デプロイのカラム構成を返す。
// 任意カラム（dive_number、dive_timestamp、conditions）は存在しない。
func Legacy() Variant {
	return Variant{
		Name:           "legacy",
		OwnerColumn:    "id_number",
		SiteColumn:     "location",
		DepthColumn:    "max_depth_m",
		DurationColumn: "duration_min",
	}
}

// FromName は名前付きバリアントを返す。"auto"はここでは解決できない。
func FromName(name string) (Variant, error) {
	switch name {
	case "modern":
		return Modern(), nil
	case "legacy":
		return Legacy(), nil
	default:
		return Variant{}, fmt.Errorf("unknown schema variant: %q", name)
	}
}
