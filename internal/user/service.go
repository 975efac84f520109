// Package user はユーザープロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/repository"
)

// FileStore はアップロードファイル保存のインターフェース。
// 保存後の公開パス（"/uploads/<name>"）を返す。
type FileStore interface {
	SaveBase64(prefix, payload string) (string, error)
	SaveBytes(prefix, ext string, data []byte) (string, error)
}

// ImageFetcher は外部URLからの画像取得インターフェース。
type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) (data []byte, ext string, err error)
}

// Service はユーザープロフィールのサービス層。
// プロフィールの取得・部分更新と、画像アップロードの保存を担う。
type Service struct {
	repo    repository.UserRepository
	store   FileStore
	fetcher ImageFetcher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.UserRepository, store FileStore, fetcher ImageFetcher) *Service {
	return &Service{
		repo:    repo,
		store:   store,
		fetcher: fetcher,
	}
}

// GetProfile は指定IDのユーザープロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, id int64) (*model.UserAccount, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateInput はプロフィール部分更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	IDNumber  *string
}

// UpdateProfile は指定されたフィールドのみを検証して更新し、更新後の
// プロフィールを返す。省略されたフィールドは現在の値を維持する。
func (s *Service) UpdateProfile(ctx context.Context, id int64, in *UpdateInput) (*model.UserAccount, error) {
	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	patch := &repository.ProfilePatch{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		IDNumber:  in.IDNumber,
	}

	updated, err := s.repo.UpdateProfile(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user profile updated", slog.Int64("user_id", id))
	return updated, nil
}

// validateUpdate は更新対象に指定されたフィールドのみを検証する。
func validateUpdate(in *UpdateInput) error {
	if in.Email != nil {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			return model.NewValidationError("emailの形式が不正です")
		}
	}
	if in.IDNumber != nil && strings.TrimSpace(*in.IDNumber) == "" {
		return model.NewValidationError("idNumberを空にすることはできません")
	}
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		return model.NewValidationError("firstNameを空にすることはできません")
	}
	return nil
}

// UploadInput は画像アップロードの入力。
// base64ペイロードとリモートURLのいずれか（または複数）を指定できる。
type UploadInput struct {
	ProfileImageBase64 string
	LicenseFrontBase64 string
	LicenseBackBase64  string
	ProfileImageURL    string
}

// SaveUploads はアップロードされた画像を保存し、プロフィールの該当カラムを
// 保存後の公開パスで更新して、更新後のプロフィールを返す。
// リモートURL指定時はSSRF防止付きクライアントで取得する。
func (s *Service) SaveUploads(ctx context.Context, id int64, in *UploadInput) (*model.UserAccount, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	patch := &repository.ProfilePatch{}
	saved := 0

	if in.ProfileImageBase64 != "" {
		path, err := s.store.SaveBase64("profile", in.ProfileImageBase64)
		if err != nil {
			return nil, model.NewUploadFailedError(fmt.Sprintf("プロフィール画像: %v", err))
		}
		patch.ProfileImage = &path
		saved++
	}
	if in.LicenseFrontBase64 != "" {
		path, err := s.store.SaveBase64("license_front", in.LicenseFrontBase64)
		if err != nil {
			return nil, model.NewUploadFailedError(fmt.Sprintf("ライセンス表面: %v", err))
		}
		patch.LicenseFront = &path
		saved++
	}
	if in.LicenseBackBase64 != "" {
		path, err := s.store.SaveBase64("license_back", in.LicenseBackBase64)
		if err != nil {
			return nil, model.NewUploadFailedError(fmt.Sprintf("ライセンス裏面: %v", err))
		}
		patch.LicenseBack = &path
		saved++
	}
	if in.ProfileImageURL != "" {
		if s.fetcher == nil {
			return nil, model.NewUploadFailedError("URL取り込みは無効化されています")
		}
		data, ext, err := s.fetcher.FetchImage(ctx, in.ProfileImageURL)
		if err != nil {
			return nil, model.NewUploadFailedError(fmt.Sprintf("画像URL: %v", err))
		}
		path, err := s.store.SaveBytes("profile", ext, data)
		if err != nil {
			return nil, model.NewUploadFailedError(fmt.Sprintf("プロフィール画像: %v", err))
		}
		patch.ProfileImage = &path
		saved++
	}

	if saved == 0 {
		return nil, model.NewValidationError("アップロード対象のファイルが指定されていません")
	}

	updated, err := s.repo.UpdateProfile(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user uploads saved",
		slog.Int64("user_id", id),
		slog.Int("files", saved),
	)
	return updated, nil
}
