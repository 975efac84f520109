package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/divelog/internal/account"
	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/user"
)

type mockUserService struct {
	getFn    func(ctx context.Context, id int64) (*model.UserAccount, error)
	updateFn func(ctx context.Context, id int64, in *user.UpdateInput) (*model.UserAccount, error)
	uploadFn func(ctx context.Context, id int64, in *user.UploadInput) (*model.UserAccount, error)
}

func (m *mockUserService) GetProfile(ctx context.Context, id int64) (*model.UserAccount, error) {
	return m.getFn(ctx, id)
}
func (m *mockUserService) UpdateProfile(ctx context.Context, id int64, in *user.UpdateInput) (*model.UserAccount, error) {
	return m.updateFn(ctx, id, in)
}
func (m *mockUserService) SaveUploads(ctx context.Context, id int64, in *user.UploadInput) (*model.UserAccount, error) {
	return m.uploadFn(ctx, id, in)
}

type mockAccountService struct {
	deleteFn func(ctx context.Context, userID int64, idNumber string) (*account.Result, error)
}

func (m *mockAccountService) DeleteAccount(ctx context.Context, userID int64, idNumber string) (*account.Result, error) {
	return m.deleteFn(ctx, userID, idNumber)
}

// newUserTestRouter はchiのURLパラメータを有効にしたテスト用ルーターを組む。
func newUserTestRouter(users UserServiceInterface, accounts AccountServiceInterface) http.Handler {
	h := NewUserHandler(users, accounts)
	r := chi.NewRouter()
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/", h.GetUser)
		r.Put("/", h.UpdateUser)
		r.Delete("/", h.DeleteUser)
		r.Post("/upload", h.UploadFiles)
	})
	return r
}

// TestGetUserHandler はプロフィール取得のレスポンスを検証する。
func TestGetUserHandler(t *testing.T) {
	users := &mockUserService{
		getFn: func(ctx context.Context, id int64) (*model.UserAccount, error) {
			return &model.UserAccount{ID: id, IDNumber: "DIV-0007", Email: "h@example.com"}, nil
		},
	}
	router := newUserTestRouter(users, &mockAccountService{})

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if resp.ID != 7 || resp.IDNumber != "DIV-0007" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// TestGetUserHandler_InvalidID は不正IDパラメータの400応答を検証する。
func TestGetUserHandler_InvalidID(t *testing.T) {
	router := newUserTestRouter(&mockUserService{}, &mockAccountService{})

	for _, path := range []string{"/users/abc", "/users/0", "/users/-3"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

// TestUpdateUserHandler は部分更新リクエストのサービスへの引き渡しを検証する。
func TestUpdateUserHandler(t *testing.T) {
	var captured *user.UpdateInput
	users := &mockUserService{
		updateFn: func(ctx context.Context, id int64, in *user.UpdateInput) (*model.UserAccount, error) {
			captured = in
			return &model.UserAccount{ID: id, Email: *in.Email}, nil
		},
	}
	router := newUserTestRouter(users, &mockAccountService{})

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/users/7", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if captured.Email == nil || *captured.Email != "new@example.com" {
		t.Errorf("Email = %v", captured.Email)
	}
	if captured.FirstName != nil || captured.IDNumber != nil {
		t.Errorf("omitted fields must stay nil: %+v", captured)
	}
}

// TestDeleteUserHandler_StatusMapping は削除結果ごとのHTTPステータスを検証する。
func TestDeleteUserHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "トークン欠落", err: model.NewValidationError("idNumberは必須です"), wantStatus: http.StatusBadRequest},
		{name: "トークン不一致", err: model.NewDeletionDeniedError(), wantStatus: http.StatusForbidden},
		{name: "アカウント不存在", err: model.NewUserNotFoundError(), wantStatus: http.StatusNotFound},
		{name: "ストア起因の失敗", err: model.NewDeletionFailedError(), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &mockAccountService{
				deleteFn: func(ctx context.Context, userID int64, idNumber string) (*account.Result, error) {
					return nil, tt.err
				},
			}
			router := newUserTestRouter(&mockUserService{}, accounts)

			req := httptest.NewRequest(http.MethodDelete, "/users/7", strings.NewReader(`{"idNumber":"DIV-0007"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

// TestDeleteUserHandler_Success は削除成功時のレスポンスボディを検証する。
func TestDeleteUserHandler_Success(t *testing.T) {
	accounts := &mockAccountService{
		deleteFn: func(ctx context.Context, userID int64, idNumber string) (*account.Result, error) {
			if userID != 7 || idNumber != "DIV-0007" {
				t.Errorf("args = (%d, %q)", userID, idNumber)
			}
			return &account.Result{DeletedDives: 12, AnonymizedReviews: 2}, nil
		},
	}
	router := newUserTestRouter(&mockUserService{}, accounts)

	req := httptest.NewRequest(http.MethodDelete, "/users/7", strings.NewReader(`{"idNumber":"DIV-0007"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp deleteUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode error: %v", err)
	}
	if resp.DeletedDives != 12 || resp.AnonymizedReviews != 2 {
		t.Errorf("unexpected counts: %+v", resp)
	}
}

// TestUploadFilesHandler はアップロードリクエストのサービスへの引き渡しを検証する。
func TestUploadFilesHandler(t *testing.T) {
	var captured *user.UploadInput
	users := &mockUserService{
		uploadFn: func(ctx context.Context, id int64, in *user.UploadInput) (*model.UserAccount, error) {
			captured = in
			return &model.UserAccount{ID: id}, nil
		},
	}
	router := newUserTestRouter(users, &mockAccountService{})

	body := `{"profileImage":"aGVsbG8=","profileImageUrl":"https://example.com/a.png"}`
	req := httptest.NewRequest(http.MethodPost, "/users/7/upload", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if captured.ProfileImageBase64 != "aGVsbG8=" {
		t.Errorf("ProfileImageBase64 = %q", captured.ProfileImageBase64)
	}
	if captured.ProfileImageURL != "https://example.com/a.png" {
		t.Errorf("ProfileImageURL = %q", captured.ProfileImageURL)
	}
}
