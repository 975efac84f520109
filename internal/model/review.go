package model

import "time"

// AnonymousAuthor はアカウント削除時にレビュー作者名へ置換される固定の匿名化センチネル。
const AnonymousAuthor = "Anonymous User"

// ReviewRecord はダイブサイトまたはクラブへのレビューを表す。
// AuthorNameは自由テキストであり、UserAccountへの外部キーではない。
// アカウントとの関連付けは表示名の完全一致のみで行われる。
type ReviewRecord struct {
	ID         int64
	SiteID     *int64
	ClubID     *int64
	AuthorName string
	Rating     int // 1〜5
	Comment    string
	CreatedAt  time.Time
}
