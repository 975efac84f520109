package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id int64) (*model.UserAccount, error)
	deleteByIDFn func(ctx context.Context, tx *sql.Tx, id int64) (int64, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.UserAccount, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, id int64, patch *repository.ProfilePatch) (*model.UserAccount, error) {
	return nil, nil
}
func (m *mockUserRepo) DeleteByIDTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	return m.deleteByIDFn(ctx, tx, id)
}

type mockDiveRepo struct {
	deleteByOwnerFn func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error)
}

func (m *mockDiveRepo) Create(ctx context.Context, rec *model.DiveRecord) (*model.DiveRecord, error) {
	return nil, nil
}
func (m *mockDiveRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*model.DiveRecord, error) {
	return nil, nil
}
func (m *mockDiveRepo) DeleteByOwnerTx(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
	return m.deleteByOwnerFn(ctx, tx, ownerKey)
}

type mockReviewRepo struct {
	anonymizeFn func(ctx context.Context, tx *sql.Tx, authorName string) (int64, error)
}

func (m *mockReviewRepo) Create(ctx context.Context, rev *model.ReviewRecord) (*model.ReviewRecord, error) {
	return nil, nil
}
func (m *mockReviewRepo) ListBySite(ctx context.Context, siteID int64) ([]*model.ReviewRecord, error) {
	return nil, nil
}
func (m *mockReviewRepo) ListByClub(ctx context.Context, clubID int64) ([]*model.ReviewRecord, error) {
	return nil, nil
}
func (m *mockReviewRepo) RatingSummaryForSite(ctx context.Context, siteID int64) (float64, int, error) {
	return 0, 0, nil
}
func (m *mockReviewRepo) AnonymizeByAuthorTx(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
	return m.anonymizeFn(ctx, tx, authorName)
}

type mockNotifier struct {
	called chan struct{}
	err    error
}

func (m *mockNotifier) SendAccountDeleted(ctx context.Context, user *model.UserAccount, anonymizedReviews int64) error {
	if m.called != nil {
		close(m.called)
	}
	return m.err
}

func testUser() *model.UserAccount {
	return &model.UserAccount{
		ID:        7,
		IDNumber:  "DIV-0007",
		FirstName: "Hanako",
		LastName:  "Umino",
		Email:     "hanako@example.com",
	}
}

func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- テスト ---

// TestDeleteAccount_Success は削除ワークフロー全体の成功経路を検証する。
// 全ステップが同一トランザクションで実行され、コミット後に通知が送られる。
func TestDeleteAccount_Success(t *testing.T) {
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var deletedOwner, anonymizedName string
	notified := make(chan struct{})

	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return testUser(), nil
			},
			deleteByIDFn: func(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
				return 1, nil
			},
		},
		&mockDiveRepo{
			deleteByOwnerFn: func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
				deletedOwner = ownerKey
				return 12, nil
			},
		},
		&mockReviewRepo{
			anonymizeFn: func(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
				anonymizedName = authorName
				return 2, nil
			},
		},
		&mockNotifier{called: notified},
		nil,
	)

	result, err := svc.DeleteAccount(context.Background(), 7, "DIV-0007")
	if err != nil {
		t.Fatalf("DeleteAccount error: %v", err)
	}

	if result.DeletedDives != 12 {
		t.Errorf("DeletedDives = %d, want 12", result.DeletedDives)
	}
	if result.AnonymizedReviews != 2 {
		t.Errorf("AnonymizedReviews = %d, want 2", result.AnonymizedReviews)
	}

	// ダイブ記録はアカウントの保存済みID番号で削除される
	if deletedOwner != "DIV-0007" {
		t.Errorf("dive deletion owner key = %q, want DIV-0007", deletedOwner)
	}
	// レビューは表示名の完全一致で匿名化される
	if anonymizedName != "Hanako Umino" {
		t.Errorf("anonymize author = %q, want full name", anonymizedName)
	}

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Error("notifier was not called after commit")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet tx expectations: %v", err)
	}
}

// TestDeleteAccount_TokenMismatch はID番号不一致時に一切の変更が
// 行われないことを検証する。
func TestDeleteAccount_TokenMismatch(t *testing.T) {
	db, mock := newTxDB(t)
	// トランザクションは開始されないはず

	mutated := false
	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return testUser(), nil
			},
			deleteByIDFn: func(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
				mutated = true
				return 1, nil
			},
		},
		&mockDiveRepo{
			deleteByOwnerFn: func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
				mutated = true
				return 0, nil
			},
		},
		&mockReviewRepo{
			anonymizeFn: func(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
				mutated = true
				return 0, nil
			},
		},
		nil, nil,
	)

	_, err := svc.DeleteAccount(context.Background(), 7, "WRONG-TOKEN")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDeletionDenied {
		t.Fatalf("expected deletion denied error, got %v", err)
	}
	if mutated {
		t.Error("store must not be mutated when token mismatches")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no transaction should be started: %v", err)
	}
}

// TestDeleteAccount_UserNotFound はアカウント不存在時のエラーを検証する。
func TestDeleteAccount_UserNotFound(t *testing.T) {
	db, _ := newTxDB(t)

	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return nil, nil
			},
		},
		&mockDiveRepo{}, &mockReviewRepo{}, nil, nil,
	)

	_, err := svc.DeleteAccount(context.Background(), 99, "DIV-0007")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected user not found error, got %v", err)
	}
}

// TestDeleteAccount_MissingToken はトークン欠落が検証エラーになることを検証する。
func TestDeleteAccount_MissingToken(t *testing.T) {
	db, _ := newTxDB(t)
	svc := NewService(db, &mockUserRepo{}, &mockDiveRepo{}, &mockReviewRepo{}, nil, nil)

	_, err := svc.DeleteAccount(context.Background(), 7, "  ")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// TestDeleteAccount_RollbackOnUserDeleteFailure はユーザー行の削除が
// 0行だった場合に全ステップがロールバックされることを検証する。
func TestDeleteAccount_RollbackOnUserDeleteFailure(t *testing.T) {
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return testUser(), nil
			},
			deleteByIDFn: func(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
				return 0, nil // 既に消えている
			},
		},
		&mockDiveRepo{
			deleteByOwnerFn: func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
				return 5, nil
			},
		},
		&mockReviewRepo{
			anonymizeFn: func(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
				return 1, nil
			},
		},
		nil, nil,
	)

	_, err := svc.DeleteAccount(context.Background(), 7, "DIV-0007")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDeletionFailed {
		t.Fatalf("expected deletion failed error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction should be rolled back: %v", err)
	}
}

// TestDeleteAccount_RollbackOnStepError は途中ステップの失敗で
// コミットに到達しないことを検証する。
func TestDeleteAccount_RollbackOnStepError(t *testing.T) {
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return testUser(), nil
			},
		},
		&mockDiveRepo{
			deleteByOwnerFn: func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
				return 0, errors.New("connection reset")
			},
		},
		&mockReviewRepo{},
		nil, nil,
	)

	if _, err := svc.DeleteAccount(context.Background(), 7, "DIV-0007"); err == nil {
		t.Fatal("expected error from failed step")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction should be rolled back: %v", err)
	}
}

// TestDeleteAccount_SkipsAnonymizeForEmptyName は表示名が空のアカウントで
// 匿名化ステップがスキップされることを検証する。
func TestDeleteAccount_SkipsAnonymizeForEmptyName(t *testing.T) {
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	anonymizeCalled := false
	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return &model.UserAccount{ID: 7, IDNumber: "DIV-0007"}, nil
			},
			deleteByIDFn: func(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
				return 1, nil
			},
		},
		&mockDiveRepo{
			deleteByOwnerFn: func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
				return 0, nil
			},
		},
		&mockReviewRepo{
			anonymizeFn: func(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
				anonymizeCalled = true
				return 0, nil
			},
		},
		nil, nil,
	)

	result, err := svc.DeleteAccount(context.Background(), 7, "DIV-0007")
	if err != nil {
		t.Fatalf("DeleteAccount error: %v", err)
	}
	if anonymizeCalled {
		t.Error("anonymize must be skipped when full name is empty")
	}
	if result.AnonymizedReviews != 0 {
		t.Errorf("AnonymizedReviews = %d, want 0", result.AnonymizedReviews)
	}
}

// TestDeleteAccount_NotifierFailureDoesNotAffectResult は通知失敗が
// 削除結果に影響しないことを検証する。
func TestDeleteAccount_NotifierFailureDoesNotAffectResult(t *testing.T) {
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	notified := make(chan struct{})
	svc := NewService(db,
		&mockUserRepo{
			findByIDFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
				return testUser(), nil
			},
			deleteByIDFn: func(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
				return 1, nil
			},
		},
		&mockDiveRepo{
			deleteByOwnerFn: func(ctx context.Context, tx *sql.Tx, ownerKey string) (int64, error) {
				return 1, nil
			},
		},
		&mockReviewRepo{
			anonymizeFn: func(ctx context.Context, tx *sql.Tx, authorName string) (int64, error) {
				return 0, nil
			},
		},
		&mockNotifier{called: notified, err: errors.New("smtp unreachable")},
		nil,
	)

	if _, err := svc.DeleteAccount(context.Background(), 7, "DIV-0007"); err != nil {
		t.Fatalf("DeleteAccount should succeed despite notifier failure: %v", err)
	}

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Error("notifier was not called")
	}
}
