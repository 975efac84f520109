// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/divelog/internal/dive"
	"github.com/hitoshi/divelog/internal/model"
)

// DiveServiceInterface はダイブハンドラーが必要とするサービスインターフェース。
type DiveServiceInterface interface {
	// CreateDive はダイブ記録を作成し、採番済みの永続化後の記録を返す。
	CreateDive(ctx context.Context, in *dive.CreateInput) (*model.DiveRecord, error)
	// ListDives は所有者キーの全ダイブ記録を新しい順に返す。
	ListDives(ctx context.Context, ownerKey string) ([]*model.DiveRecord, error)
}

// DiveHandler はダイブ記録のHTTPハンドラー。
type DiveHandler struct {
	service DiveServiceInterface
}

// NewDiveHandler はDiveHandlerを生成する。
func NewDiveHandler(service DiveServiceInterface) *DiveHandler {
	return &DiveHandler{service: service}
}

// createDiveRequest はダイブ記録作成リクエストのボディ。
// クライアント世代によりフィールド名が揺れるため、別名も受け付ける。
type createDiveRequest struct {
	IDNumber string `json:"idNumber"`
	DiveDate string `json:"diveDate"`
	DiveType string `json:"diveType"`

	Site     string `json:"site"`
	Location string `json:"location"` // siteの旧名

	MaxDepthM *float64 `json:"maxDepthM"`
	Depth     *float64 `json:"depth"` // maxDepthMの旧名

	DurationMin *int `json:"durationMin"`

	Weight    *float64 `json:"weight"`
	WeightsKg *float64 `json:"weightsKg"` // weightの旧名

	BodyDiver   string `json:"bodyDiver"`
	Description string `json:"description"`
	Notes       string `json:"notes"` // descriptionの旧名

	DiveNumber    *flexInt       `json:"diveNumber"`
	DiveTimestamp *time.Time     `json:"diveTimestamp"`
	Conditions    flexStringList `json:"conditions"`
}

// diveResponse はダイブ記録のAPIレスポンス。
type diveResponse struct {
	ID          int64      `json:"id"`
	IDNumber    string     `json:"idNumber"`
	DiveDate    time.Time  `json:"diveDate"`
	DiveType    string     `json:"diveType"`
	Site        string     `json:"site,omitempty"`
	MaxDepth    *float64   `json:"maxDepth,omitempty"`
	DurationMin *int       `json:"durationMin,omitempty"`
	Weight      *float64   `json:"weight,omitempty"`
	BodyDiver   string     `json:"bodyDiver,omitempty"`
	Description string     `json:"description,omitempty"`
	DiveNumber  *int       `json:"diveNumber,omitempty"`
	DiveTime    *time.Time `json:"diveTimestamp,omitempty"`
	Conditions  []string   `json:"conditions,omitempty"`
}

// toDiveResponse はドメインモデルをAPIレスポンスに変換する。
func toDiveResponse(rec *model.DiveRecord) diveResponse {
	return diveResponse{
		ID:          rec.ID,
		IDNumber:    rec.OwnerKey,
		DiveDate:    rec.DiveDate,
		DiveType:    rec.DiveType,
		Site:        rec.Site,
		MaxDepth:    rec.MaxDepth,
		DurationMin: rec.DurationMinutes,
		Weight:      rec.Weight,
		BodyDiver:   rec.BodyDiver,
		Description: rec.Description,
		DiveNumber:  rec.DiveNumber,
		DiveTime:    rec.DiveTimestamp,
		Conditions:  rec.Conditions,
	}
}

// CreateDive はダイブ記録の作成を処理する。
// POST /dives
func (h *DiveHandler) CreateDive(w http.ResponseWriter, r *http.Request) {
	var req createDiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	in := &dive.CreateInput{
		OwnerKey:        req.IDNumber,
		DiveDate:        req.DiveDate,
		DiveType:        req.DiveType,
		Site:            firstNonEmpty(req.Site, req.Location),
		MaxDepth:        firstNonNil(req.Depth, req.MaxDepthM),
		DurationMinutes: req.DurationMin,
		Weight:          firstNonNil(req.Weight, req.WeightsKg),
		BodyDiver:       req.BodyDiver,
		Description:     firstNonEmpty(req.Description, req.Notes),
		DiveTimestamp:   req.DiveTimestamp,
		Conditions:      req.Conditions,
	}
	if req.DiveNumber != nil {
		n := int(*req.DiveNumber)
		in.DiveNumber = &n
	}

	created, err := h.service.CreateDive(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toDiveResponse(created))
}

// ListDives はユーザーのダイブ記録一覧を返す。
// GET /dives?idNumber=...
func (h *DiveHandler) ListDives(w http.ResponseWriter, r *http.Request) {
	idNumber := r.URL.Query().Get("idNumber")

	records, err := h.service.ListDives(r.Context(), idNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]diveResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toDiveResponse(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// firstNonEmpty は最初の空でない文字列を返す。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstNonNil は最初のnilでないポインタを返す。
func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeDuplicateDiveNumber, model.ErrCodeUploadFailed:
		return http.StatusBadRequest
	case model.ErrCodeDeletionDenied:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeSiteNotFound, model.ErrCodeClubNotFound:
		return http.StatusNotFound
	case model.ErrCodeDeletionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
