// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/divelog/internal/model"
)

// DiveRepository はダイブ記録の永続化インターフェース。
type DiveRepository interface {
	// Create はダイブ記録を1行追加し、採番済みIDと計算されたダイブ番号・
	// タイムスタンプを含む永続化後の全フィールドを返す。
	// DiveNumberがnilかつスキーマにdive_numberカラムが存在する場合は
	// 所有者ごとの連番が原子的に採番される。
	Create(ctx context.Context, rec *model.DiveRecord) (*model.DiveRecord, error)

	// ListByOwner は所有者キーに一致する全記録をダイブ日の降順
	// （同日の場合は挿入順の降順）で返す。
	ListByOwner(ctx context.Context, ownerKey string) ([]*model.DiveRecord, error)

	// DeleteByOwnerTx は指定トランザクション内で所有者の全ダイブ記録を削除し、
	// 削除行数を返す。0行削除およびテーブル不存在は成功として扱う。
	DeleteByOwnerTx(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error)
}

// UserRepository はユーザーアカウントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.UserAccount, error)

	// UpdateProfile はnilでないフィールドのみを部分更新し、更新後の行を返す。
	// 対象が存在しない場合はnilを返す。
	UpdateProfile(ctx context.Context, id int64, patch *ProfilePatch) (*model.UserAccount, error)

	// DeleteByIDTx は指定トランザクション内でユーザー行を削除し、削除行数を返す。
	// 0行はエラーではなく0を返す（呼び出し側で失敗と判定する）。
	DeleteByIDTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error)
}

// ProfilePatch はプロフィール部分更新の入力。nilのフィールドは変更しない。
type ProfilePatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	IDNumber     *string
	ProfileImage *string
	LicenseFront *string
	LicenseBack  *string
}

// ReviewRepository はレビューの永続化インターフェース。
type ReviewRepository interface {
	// Create はレビューを作成し、採番済みIDと作成時刻を含む行を返す。
	Create(ctx context.Context, rev *model.ReviewRecord) (*model.ReviewRecord, error)

	// ListBySite はサイトのレビュー一覧を作成時刻の降順で返す。
	ListBySite(ctx context.Context, siteID int64) ([]*model.ReviewRecord, error)

	// ListByClub はクラブのレビュー一覧を作成時刻の降順で返す。
	ListByClub(ctx context.Context, clubID int64) ([]*model.ReviewRecord, error)

	// RatingSummaryForSite はサイトの平均評価とレビュー数を返す。
	// レビューが存在しない場合は(0, 0)を返す。
	RatingSummaryForSite(ctx context.Context, siteID int64) (float64, int, error)

	// AnonymizeByAuthorTx は指定トランザクション内で、作者名が完全一致する
	// 全レビューの作者名を匿名化センチネルへ置換し、置換行数を返す。
	// 評価・コメント・作成時刻は変更しない。0件一致は成功。
	AnonymizeByAuthorTx(ctx context.Context, tx *sql.Tx, authorName string) (int64, error)
}

// SiteRepository はダイブサイトの読み取りインターフェース。
type SiteRepository interface {
	// ListAll は全ダイブサイトを名前の昇順で返す。
	ListAll(ctx context.Context) ([]*model.DiveSite, error)

	// FindByID は指定IDのサイトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.DiveSite, error)
}

// ClubRepository はダイブクラブの読み取りインターフェース。
type ClubRepository interface {
	// ListAll は全ダイブクラブを名前の昇順で返す。
	ListAll(ctx context.Context) ([]*model.DiveClub, error)

	// FindByID は指定IDのクラブを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.DiveClub, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
// アカウント削除オーケストレータが複数リポジトリの操作を
// 単一トランザクションで実行するために使用する。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
