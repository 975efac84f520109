// Package dive はダイブ記録のドメインロジックを提供する。
package dive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/repository"
)

// TextSanitizer は自由テキストフィールドの無害化インターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Recorder はダイブ記録関連のメトリクス記録インターフェース。
type Recorder interface {
	RecordDiveCreated(diveType string)
}

// Service はダイブ記録のサービス層。
// 入力検証と自由テキストの無害化を行い、永続化はリポジトリに委譲する。
type Service struct {
	repo      repository.DiveRepository
	sanitizer TextSanitizer
	metrics   Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとmetricsはnil許容（nilの場合は該当処理をスキップする）。
func NewService(repo repository.DiveRepository, sanitizer TextSanitizer, metrics Recorder) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// CreateInput はダイブ記録作成の入力。
type CreateInput struct {
	OwnerKey string
	DiveDate string // RFC3339または"2006-01-02"
	DiveType string
	Site     string

	MaxDepth        *float64
	DurationMinutes *int
	Weight          *float64
	BodyDiver       string
	Description     string

	DiveNumber    *int
	DiveTimestamp *time.Time
	Conditions    []string
}

// CreateDive は入力を検証してダイブ記録を1件作成し、
// 採番済みIDと計算されたダイブ番号を含む永続化後の記録を返す。
// 検証エラーは呼び出し側で修正可能なものとしてAPIErrorで返す。
func (s *Service) CreateDive(ctx context.Context, in *CreateInput) (*model.DiveRecord, error) {
	ownerKey := strings.TrimSpace(in.OwnerKey)
	if ownerKey == "" {
		return nil, model.NewValidationError("idNumberは必須です")
	}
	if strings.TrimSpace(in.DiveType) == "" {
		return nil, model.NewValidationError("diveTypeは必須です")
	}

	diveDate, err := parseDiveDate(in.DiveDate)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("diveDateが不正です: %v", err))
	}

	if in.DiveNumber != nil && *in.DiveNumber < 1 {
		return nil, model.NewValidationError("diveNumberは1以上の整数で指定してください")
	}
	if in.DurationMinutes != nil && *in.DurationMinutes < 0 {
		return nil, model.NewValidationError("durationMinは0以上で指定してください")
	}

	rec := &model.DiveRecord{
		OwnerKey:        ownerKey,
		DiveDate:        diveDate,
		DiveType:        in.DiveType,
		Site:            in.Site,
		MaxDepth:        in.MaxDepth,
		DurationMinutes: in.DurationMinutes,
		Weight:          in.Weight,
		BodyDiver:       s.clean(in.BodyDiver),
		Description:     s.clean(in.Description),
		DiveNumber:      in.DiveNumber,
		DiveTimestamp:   in.DiveTimestamp,
		Conditions:      in.Conditions,
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}

	slog.Info("dive record created",
		slog.Int64("id", created.ID),
		slog.String("dive_type", created.DiveType),
	)
	if s.metrics != nil {
		s.metrics.RecordDiveCreated(created.DiveType)
	}

	return created, nil
}

// ListDives は所有者キーの全ダイブ記録を新しい順に返す。
// ページネーションは行わない（想定される1ユーザーあたりの件数では不要）。
func (s *Service) ListDives(ctx context.Context, ownerKey string) ([]*model.DiveRecord, error) {
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return nil, model.NewValidationError("idNumberは必須です")
	}

	return s.repo.ListByOwner(ctx, ownerKey)
}

// clean は自由テキストを無害化する。sanitizer未設定の場合はそのまま返す。
func (s *Service) clean(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.Sanitize(raw)
}

// parseDiveDate はダイブ日をRFC3339、次いで日付のみの形式で解釈する。
func parseDiveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("diveDateは必須です")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("日付形式を解釈できません: %q", raw)
}
