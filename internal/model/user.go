package model

import "strings"

// UserAccount はサービス利用者のアカウントを表す。
// IDNumberは破壊的操作の再認証トークンとして使用される、人間が入力した識別番号。
type UserAccount struct {
	ID        int64
	IDNumber  string
	FirstName string
	LastName  string
	Email     string

	// メディア参照（アップロード済みファイルのURL/パス）
	ProfileImage string
	LicenseFront string
	LicenseBack  string
}

// FullName は表示名（first + " " + last をトリムしたもの）を返す。
// レビューの作者名照合に使用される。
func (u *UserAccount) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
