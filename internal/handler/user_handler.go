package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/divelog/internal/account"
	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするプロフィールサービス。
type UserServiceInterface interface {
	// GetProfile は指定IDのユーザープロフィールを返す。
	GetProfile(ctx context.Context, id int64) (*model.UserAccount, error)
	// UpdateProfile は指定フィールドのみを部分更新する。
	UpdateProfile(ctx context.Context, id int64, in *user.UpdateInput) (*model.UserAccount, error)
	// SaveUploads はアップロード画像を保存しプロフィールを更新する。
	SaveUploads(ctx context.Context, id int64, in *user.UploadInput) (*model.UserAccount, error)
}

// AccountServiceInterface はユーザーハンドラーが必要とする削除サービス。
type AccountServiceInterface interface {
	// DeleteAccount はアカウント削除ワークフローを実行する。
	DeleteAccount(ctx context.Context, userID int64, idNumber string) (*account.Result, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	users    UserServiceInterface
	accounts AccountServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserServiceInterface, accounts AccountServiceInterface) *UserHandler {
	return &UserHandler{
		users:    users,
		accounts: accounts,
	}
}

// userResponse はユーザープロフィールのAPIレスポンス。
type userResponse struct {
	ID           int64  `json:"id"`
	IDNumber     string `json:"idNumber"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
	LicenseFront string `json:"licenseFront,omitempty"`
	LicenseBack  string `json:"licenseBack,omitempty"`
}

// toUserResponse はドメインモデルをAPIレスポンスに変換する。
func toUserResponse(u *model.UserAccount) userResponse {
	return userResponse{
		ID:           u.ID,
		IDNumber:     u.IDNumber,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		LicenseFront: u.LicenseFront,
		LicenseBack:  u.LicenseBack,
	}
}

// updateUserRequest はプロフィール部分更新リクエストのボディ。
// 省略されたフィールドは変更されない。
type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	IDNumber  *string `json:"idNumber"`
}

// deleteUserRequest はアカウント削除リクエストのボディ。
// idNumberは削除トークンとして扱われ、保存済みのID番号と完全一致する必要がある。
type deleteUserRequest struct {
	IDNumber string `json:"idNumber"`
}

// deleteUserResponse はアカウント削除成功時のレスポンス。
type deleteUserResponse struct {
	Message           string `json:"message"`
	DeletedDives      int64  `json:"deletedDives"`
	AnonymizedReviews int64  `json:"anonymizedReviews"`
}

// uploadRequest は画像アップロードリクエストのボディ。
type uploadRequest struct {
	ProfileImage    string `json:"profileImage"`
	LicenseFront    string `json:"licenseFront"`
	LicenseBack     string `json:"licenseBack"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// GetUser はユーザープロフィールを取得する。
// GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// UpdateUser はユーザープロフィールを部分更新する。
// PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), id, &user.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		IDNumber:  req.IDNumber,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// DeleteUser はアカウント削除ワークフローを実行する。
// DELETE /users/{id} ボディ {"idNumber": "..."}
//
// ステータスコード: 200 成功 / 400 トークン欠落 / 403 トークン不一致 /
// 404 アカウント不存在 / 500 ストア起因の失敗（ロールバック済み）。
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req deleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.accounts.DeleteAccount(r.Context(), id, req.IDNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteUserResponse{
		Message:           "アカウントを削除しました。",
		DeletedDives:      result.DeletedDives,
		AnonymizedReviews: result.AnonymizedReviews,
	})
}

// UploadFiles はプロフィール画像・ライセンス画像のアップロードを処理する。
// POST /users/{id}/upload
func (h *UserHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	u, err := h.users.SaveUploads(r.Context(), id, &user.UploadInput{
		ProfileImageBase64: req.ProfileImage,
		LicenseFrontBase64: req.LicenseFront,
		LicenseBackBase64:  req.LicenseBack,
		ProfileImageURL:    req.ProfileImageURL,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// parseUserID はURLパラメータのユーザーIDを解析する。
// 不正な場合は400を書き込んでfalseを返す。
func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("ユーザーIDが不正です"))
		return 0, false
	}
	return id, true
}
