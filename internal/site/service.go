// Package site はダイブサイト・クラブ閲覧とレビュー投稿のドメインロジックを提供する。
package site

import (
	"context"
	"strings"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/repository"
)

// TextSanitizer は自由テキストフィールドの無害化インターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Service はサイト・クラブ閲覧のサービス層。
type Service struct {
	siteRepo   repository.SiteRepository
	clubRepo   repository.ClubRepository
	reviewRepo repository.ReviewRepository
	sanitizer  TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	siteRepo repository.SiteRepository,
	clubRepo repository.ClubRepository,
	reviewRepo repository.ReviewRepository,
	sanitizer TextSanitizer,
) *Service {
	return &Service{
		siteRepo:   siteRepo,
		clubRepo:   clubRepo,
		reviewRepo: reviewRepo,
		sanitizer:  sanitizer,
	}
}

// ListSites は全ダイブサイトを名前順で返す。
func (s *Service) ListSites(ctx context.Context) ([]*model.DiveSite, error) {
	return s.siteRepo.ListAll(ctx)
}

// GetSiteDetail はサイト詳細をレビューと平均評価付きで返す。
func (s *Service) GetSiteDetail(ctx context.Context, siteID int64) (*model.DiveSiteDetail, error) {
	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, model.NewSiteNotFoundError(siteID)
	}

	reviews, err := s.reviewRepo.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	avg, count, err := s.reviewRepo.RatingSummaryForSite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	return &model.DiveSiteDetail{
		DiveSite:      *site,
		Reviews:       reviews,
		AverageRating: avg,
		ReviewCount:   count,
	}, nil
}

// ListClubs は全ダイブクラブを名前順で返す。
func (s *Service) ListClubs(ctx context.Context) ([]*model.DiveClub, error) {
	return s.clubRepo.ListAll(ctx)
}

// GetClub は指定IDのクラブを返す。
func (s *Service) GetClub(ctx context.Context, clubID int64) (*model.DiveClub, error) {
	club, err := s.clubRepo.FindByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, model.NewClubNotFoundError(clubID)
	}
	return club, nil
}

// ReviewInput はレビュー投稿の入力。
type ReviewInput struct {
	AuthorName string
	Rating     int
	Comment    string
}

// CreateSiteReview はサイトへのレビューを検証・無害化して作成する。
func (s *Service) CreateSiteReview(ctx context.Context, siteID int64, in *ReviewInput) (*model.ReviewRecord, error) {
	if err := s.validateReview(in); err != nil {
		return nil, err
	}

	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, model.NewSiteNotFoundError(siteID)
	}

	return s.reviewRepo.Create(ctx, &model.ReviewRecord{
		SiteID:     &siteID,
		AuthorName: strings.TrimSpace(in.AuthorName),
		Rating:     in.Rating,
		Comment:    s.clean(in.Comment),
	})
}

// CreateClubReview はクラブへのレビューを検証・無害化して作成する。
func (s *Service) CreateClubReview(ctx context.Context, clubID int64, in *ReviewInput) (*model.ReviewRecord, error) {
	if err := s.validateReview(in); err != nil {
		return nil, err
	}

	club, err := s.clubRepo.FindByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, model.NewClubNotFoundError(clubID)
	}

	return s.reviewRepo.Create(ctx, &model.ReviewRecord{
		ClubID:     &clubID,
		AuthorName: strings.TrimSpace(in.AuthorName),
		Rating:     in.Rating,
		Comment:    s.clean(in.Comment),
	})
}

// validateReview は作者名と評価値を検証する。
func (s *Service) validateReview(in *ReviewInput) error {
	if strings.TrimSpace(in.AuthorName) == "" {
		return model.NewValidationError("user_nameは必須です")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return model.NewValidationError("ratingは1から5の整数で指定してください")
	}
	return nil
}

func (s *Service) clean(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.Sanitize(raw)
}
