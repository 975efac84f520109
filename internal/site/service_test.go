package site

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/divelog/internal/model"
)

// --- モック ---

type mockSiteRepo struct {
	listFn func(ctx context.Context) ([]*model.DiveSite, error)
	findFn func(ctx context.Context, id int64) (*model.DiveSite, error)
}

func (m *mockSiteRepo) ListAll(ctx context.Context) ([]*model.DiveSite, error) {
	return m.listFn(ctx)
}
func (m *mockSiteRepo) FindByID(ctx context.Context, id int64) (*model.DiveSite, error) {
	return m.findFn(ctx, id)
}

type mockClubRepo struct {
	listFn func(ctx context.Context) ([]*model.DiveClub, error)
	findFn func(ctx context.Context, id int64) (*model.DiveClub, error)
}

func (m *mockClubRepo) ListAll(ctx context.Context) ([]*model.DiveClub, error) {
	return m.listFn(ctx)
}
func (m *mockClubRepo) FindByID(ctx context.Context, id int64) (*model.DiveClub, error) {
	return m.findFn(ctx, id)
}

type mockReviewRepo struct {
	createFn  func(ctx context.Context, rev *model.ReviewRecord) (*model.ReviewRecord, error)
	listFn    func(ctx context.Context, siteID int64) ([]*model.ReviewRecord, error)
	summaryFn func(ctx context.Context, siteID int64) (float64, int, error)
}

func (m *mockReviewRepo) Create(ctx context.Context, rev *model.ReviewRecord) (*model.ReviewRecord, error) {
	return m.createFn(ctx, rev)
}
func (m *mockReviewRepo) ListBySite(ctx context.Context, siteID int64) ([]*model.ReviewRecord, error) {
	return m.listFn(ctx, siteID)
}
func (m *mockReviewRepo) ListByClub(ctx context.Context, clubID int64) ([]*model.ReviewRecord, error) {
	return nil, nil
}
func (m *mockReviewRepo) RatingSummaryForSite(ctx context.Context, siteID int64) (float64, int, error) {
	return m.summaryFn(ctx, siteID)
}
func (m *mockReviewRepo) AnonymizeByAuthorTx(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
	return 0, nil
}

type stripSanitizer struct{}

func (stripSanitizer) Sanitize(raw string) string {
	return strings.ReplaceAll(raw, "<script>", "")
}

// --- テスト ---

// TestGetSiteDetail はサイト詳細がレビューと平均評価込みで返ることを検証する。
func TestGetSiteDetail(t *testing.T) {
	siteRepo := &mockSiteRepo{
		findFn: func(ctx context.Context, id int64) (*model.DiveSite, error) {
			return &model.DiveSite{ID: id, Name: "青の洞窟"}, nil
		},
	}
	reviewRepo := &mockReviewRepo{
		listFn: func(ctx context.Context, siteID int64) ([]*model.ReviewRecord, error) {
			return []*model.ReviewRecord{{ID: 1, Rating: 5}, {ID: 2, Rating: 4}}, nil
		},
		summaryFn: func(ctx context.Context, siteID int64) (float64, int, error) {
			return 4.5, 2, nil
		},
	}
	svc := NewService(siteRepo, &mockClubRepo{}, reviewRepo, nil)

	detail, err := svc.GetSiteDetail(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetSiteDetail error: %v", err)
	}
	if detail.Name != "青の洞窟" || len(detail.Reviews) != 2 {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if detail.AverageRating != 4.5 || detail.ReviewCount != 2 {
		t.Errorf("summary = %v/%v, want 4.5/2", detail.AverageRating, detail.ReviewCount)
	}
}

// TestGetSiteDetail_NotFound は不存在サイトのエラーを検証する。
func TestGetSiteDetail_NotFound(t *testing.T) {
	siteRepo := &mockSiteRepo{
		findFn: func(ctx context.Context, id int64) (*model.DiveSite, error) {
			return nil, nil
		},
	}
	svc := NewService(siteRepo, &mockClubRepo{}, &mockReviewRepo{}, nil)

	_, err := svc.GetSiteDetail(context.Background(), 999)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSiteNotFound {
		t.Fatalf("expected site not found error, got %v", err)
	}
}

// TestCreateSiteReview_Validation は作者名と評価値の検証を確認する。
func TestCreateSiteReview_Validation(t *testing.T) {
	svc := NewService(&mockSiteRepo{}, &mockClubRepo{}, &mockReviewRepo{}, nil)

	tests := []struct {
		name string
		in   *ReviewInput
	}{
		{name: "作者名欠落", in: &ReviewInput{Rating: 4}},
		{name: "評価が0", in: &ReviewInput{AuthorName: "Taro", Rating: 0}},
		{name: "評価が6", in: &ReviewInput{AuthorName: "Taro", Rating: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSiteReview(context.Background(), 1, tt.in)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

// TestCreateSiteReview はコメントの無害化とサイト紐付けを検証する。
func TestCreateSiteReview(t *testing.T) {
	siteRepo := &mockSiteRepo{
		findFn: func(ctx context.Context, id int64) (*model.DiveSite, error) {
			return &model.DiveSite{ID: id}, nil
		},
	}
	var captured *model.ReviewRecord
	reviewRepo := &mockReviewRepo{
		createFn: func(ctx context.Context, rev *model.ReviewRecord) (*model.ReviewRecord, error) {
			captured = rev
			return rev, nil
		},
	}
	svc := NewService(siteRepo, &mockClubRepo{}, reviewRepo, stripSanitizer{})

	_, err := svc.CreateSiteReview(context.Background(), 3, &ReviewInput{
		AuthorName: " Taro Yamada ",
		Rating:     5,
		Comment:    "<script>best site",
	})
	if err != nil {
		t.Fatalf("CreateSiteReview error: %v", err)
	}

	if captured.SiteID == nil || *captured.SiteID != 3 {
		t.Errorf("SiteID = %v, want 3", captured.SiteID)
	}
	if captured.AuthorName != "Taro Yamada" {
		t.Errorf("AuthorName = %q, want trimmed", captured.AuthorName)
	}
	if strings.Contains(captured.Comment, "<script>") {
		t.Errorf("comment not sanitized: %q", captured.Comment)
	}
}

// TestCreateClubReview_ClubNotFound は不存在クラブへの投稿エラーを検証する。
func TestCreateClubReview_ClubNotFound(t *testing.T) {
	clubRepo := &mockClubRepo{
		findFn: func(ctx context.Context, id int64) (*model.DiveClub, error) {
			return nil, nil
		},
	}
	svc := NewService(&mockSiteRepo{}, clubRepo, &mockReviewRepo{}, nil)

	_, err := svc.CreateClubReview(context.Background(), 42, &ReviewInput{
		AuthorName: "Taro",
		Rating:     3,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeClubNotFound {
		t.Fatalf("expected club not found error, got %v", err)
	}
}
