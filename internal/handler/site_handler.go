package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/site"
)

// SiteServiceInterface はサイトハンドラーが必要とするサービスインターフェース。
type SiteServiceInterface interface {
	ListSites(ctx context.Context) ([]*model.DiveSite, error)
	GetSiteDetail(ctx context.Context, siteID int64) (*model.DiveSiteDetail, error)
	ListClubs(ctx context.Context) ([]*model.DiveClub, error)
	GetClub(ctx context.Context, clubID int64) (*model.DiveClub, error)
	CreateSiteReview(ctx context.Context, siteID int64, in *site.ReviewInput) (*model.ReviewRecord, error)
	CreateClubReview(ctx context.Context, clubID int64, in *site.ReviewInput) (*model.ReviewRecord, error)
}

// SiteHandler はダイブサイト・クラブ閲覧のHTTPハンドラー。
type SiteHandler struct {
	service SiteServiceInterface
}

// NewSiteHandler はSiteHandlerを生成する。
func NewSiteHandler(service SiteServiceInterface) *SiteHandler {
	return &SiteHandler{service: service}
}

// siteResponse はダイブサイトのAPIレスポンス。
type siteResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description,omitempty"`
}

// toSiteResponse はドメインモデルをAPIレスポンスに変換する。
func toSiteResponse(s *model.DiveSite) siteResponse {
	return siteResponse{
		ID:          s.ID,
		Name:        s.Name,
		Location:    s.Location,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Description: s.Description,
	}
}

// clubResponse はダイブクラブのAPIレスポンス。
type clubResponse struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
	ContactEmail string   `json:"contactEmail,omitempty"`
	ContactPhone string   `json:"contactPhone,omitempty"`
	Website      string   `json:"website,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
}

// toClubResponse はドメインモデルをAPIレスポンスに変換する。
func toClubResponse(c *model.DiveClub) clubResponse {
	return clubResponse{
		ID:           c.ID,
		Name:         c.Name,
		Location:     c.Location,
		Description:  c.Description,
		ContactEmail: c.ContactEmail,
		ContactPhone: c.ContactPhone,
		Website:      c.Website,
		ImageURL:     c.ImageURL,
		Rating:       c.Rating,
	}
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// toReviewResponse はドメインモデルをAPIレスポンスに変換する。
func toReviewResponse(rev *model.ReviewRecord) reviewResponse {
	return reviewResponse{
		ID:        rev.ID,
		UserName:  rev.AuthorName,
		Rating:    rev.Rating,
		Comment:   rev.Comment,
		CreatedAt: rev.CreatedAt,
	}
}

// siteDetailResponse はサイト詳細のAPIレスポンス。
type siteDetailResponse struct {
	siteResponse
	Reviews       []reviewResponse `json:"reviews"`
	AverageRating float64          `json:"averageRating"`
	ReviewCount   int              `json:"reviewCount"`
}

// createReviewRequest はレビュー投稿リクエストのボディ。
type createReviewRequest struct {
	UserName string  `json:"userName"`
	Rating   flexInt `json:"rating"`
	Comment  string  `json:"comment"`
}

// ListSites は全ダイブサイトを返す。
// GET /dive-sites
func (h *SiteHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.service.ListSites(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]siteResponse, 0, len(sites))
	for _, s := range sites {
		resp = append(resp, toSiteResponse(s))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetSite はサイト詳細をレビューと平均評価付きで返す。
// GET /dive-sites/{id}
func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetSiteDetail(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	reviews := make([]reviewResponse, 0, len(detail.Reviews))
	for _, rev := range detail.Reviews {
		reviews = append(reviews, toReviewResponse(rev))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(siteDetailResponse{
		siteResponse:  toSiteResponse(&detail.DiveSite),
		Reviews:       reviews,
		AverageRating: detail.AverageRating,
		ReviewCount:   detail.ReviewCount,
	})
}

// CreateSiteReview はサイトへのレビュー投稿を処理する。
// POST /dive-sites/{id}/reviews
func (h *SiteHandler) CreateSiteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	in, ok := decodeReviewRequest(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateSiteReview(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toReviewResponse(created))
}

// ListClubs は全ダイブクラブを返す。
// GET /dive-clubs
func (h *SiteHandler) ListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.service.ListClubs(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]clubResponse, 0, len(clubs))
	for _, c := range clubs {
		resp = append(resp, toClubResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetClub はクラブ詳細を返す。
// GET /dive-clubs/{id}
func (h *SiteHandler) GetClub(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	club, err := h.service.GetClub(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClubResponse(club))
}

// CreateClubReview はクラブへのレビュー投稿を処理する。
// POST /dive-clubs/{id}/reviews
func (h *SiteHandler) CreateClubReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	in, ok := decodeReviewRequest(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateClubReview(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toReviewResponse(created))
}

// decodeReviewRequest はレビュー投稿のボディを解析する。
// 不正な場合は400を書き込んでfalseを返す。
func decodeReviewRequest(w http.ResponseWriter, r *http.Request) (*site.ReviewInput, bool) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return nil, false
	}

	return &site.ReviewInput{
		AuthorName: req.UserName,
		Rating:     int(req.Rating),
		Comment:    req.Comment,
	}, true
}

// parseResourceID はURLパラメータのリソースIDを解析する。
// 不正な場合は400を書き込んでfalseを返す。
func parseResourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リソースIDが不正です"))
		return 0, false
	}
	return id, true
}
