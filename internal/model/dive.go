// Package model はドメインモデルを定義する。
package model

import "time"

// DiveRecord は1回のダイブ記録を表す。
// 行IDはストアが採番する。作成後の更新は行わず、削除はアカウント削除の
// 副作用としてのみ発生する。
type DiveRecord struct {
	ID       int64
	OwnerKey string // 所有アカウントを識別する不透明な文字列（格納カラム名はスキーマバリアントに依存する）
	DiveDate time.Time
	DiveType string // 自由形式のカテゴリ文字列（"scuba"、"free"など。この層では列挙を強制しない）
	Site     string

	MaxDepth        *float64 // メートル
	DurationMinutes *int
	Weight          *float64 // ウェイト量（kg）
	BodyDiver       string
	Description     string

	// DiveNumber は所有者ごとに一意な連番ラベル。呼び出し側が省略した場合は
	// max(既存値)+1 で採番される。カラムが存在しないバリアントではnilのまま。
	DiveNumber *int

	// DiveTimestamp は作成時刻。カラムが存在する場合のみ設定される。
	DiveTimestamp *time.Time

	// Conditions はタグのリスト。シリアライズしたテキストとして格納される。
	Conditions []string
}
