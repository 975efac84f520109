package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeDeletionDenied      = "DELETION_DENIED"
	ErrCodeSiteNotFound        = "SITE_NOT_FOUND"
	ErrCodeClubNotFound        = "CLUB_NOT_FOUND"
	ErrCodeDuplicateDiveNumber = "DUPLICATE_DIVE_NUMBER"
	ErrCodeDeletionFailed      = "DELETION_FAILED"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
)

// NewValidationError は呼び出し側で修正可能な入力エラーを生成する。
// 自動リトライの対象にはならない。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "resource",
		Action:   "アカウントIDを確認してください。",
	}
}

// NewDeletionDeniedError はID番号の不一致によるアカウント削除拒否エラーを生成する。
// 監査ログにはアカウントIDのみを残し、トークンは記録しない。
func NewDeletionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeletionDenied,
		Message:  "ID番号が一致しません。アカウント削除は拒否されました。",
		Category: "auth",
		Action:   "登録時のID番号を確認してください。",
	}
}

// NewDeletionFailedError はストア起因のアカウント削除失敗エラーを生成する。
// トランザクションはロールバック済みであることが保証される。
func NewDeletionFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeletionFailed,
		Message:  "アカウントの削除に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSiteNotFoundError はダイブサイトが見つからない場合のエラーを生成する。
func NewSiteNotFoundError(siteID int64) *APIError {
	return &APIError{
		Code:     ErrCodeSiteNotFound,
		Message:  fmt.Sprintf("指定されたダイブサイトが見つかりません: %d", siteID),
		Category: "resource",
		Action:   "サイトIDを確認してください。",
	}
}

// NewClubNotFoundError はダイブクラブが見つからない場合のエラーを生成する。
func NewClubNotFoundError(clubID int64) *APIError {
	return &APIError{
		Code:     ErrCodeClubNotFound,
		Message:  fmt.Sprintf("指定されたダイブクラブが見つかりません: %d", clubID),
		Category: "resource",
		Action:   "クラブIDを確認してください。",
	}
}

// NewDuplicateDiveNumberError は明示指定されたダイブ番号が所有者内で重複した
// 場合のエラーを生成する。
func NewDuplicateDiveNumberError(number int) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateDiveNumber,
		Message:  fmt.Sprintf("ダイブ番号 %d は既に使用されています。", number),
		Category: "validation",
		Action:   "別のダイブ番号を指定するか、省略して自動採番してください。",
	}
}

// NewUploadFailedError はファイルアップロード失敗エラーを生成する。
func NewUploadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("アップロードに失敗しました: %s", reason),
		Category: "validation",
		Action:   "ファイル形式とサイズを確認して再度お試しください。",
	}
}
