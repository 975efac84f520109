// Package account はアカウントライフサイクル（削除）のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/divelog/internal/model"
	"github.com/hitoshi/divelog/internal/repository"
)

// Notifier はアカウント削除完了通知のインターフェース。
// 通知はコミット後のベストエフォートであり、失敗しても削除は取り消されない。
type Notifier interface {
	SendAccountDeleted(ctx context.Context, user *model.UserAccount, anonymizedReviews int64) error
}

// Recorder はアカウント削除関連のメトリクス記録インターフェース。
type Recorder interface {
	RecordAccountDeletion(outcome string)
	RecordReviewsAnonymized(count int64)
}

// 削除処理の結果メトリクスに使う結果ラベル。
const (
	outcomeCommitted  = "committed"
	outcomeDenied     = "denied"
	outcomeNotFound   = "not_found"
	outcomeRolledBack = "rolled_back"
)

// notifyTimeout はコミット後のメール通知に許す時間。
// リクエストのコンテキストとは独立している（リクエスト完了後も送信を続ける）。
const notifyTimeout = 30 * time.Second

// Service はアカウント削除のオーケストレータ。
//
// 削除は複数ステップのワークフローとして実行される:
//
//	検証 → ダイブ記録削除 → レビュー匿名化 → ユーザー行削除 → コミット
//
// 検証（トークン照合・存在確認）はいかなる変更よりも前に行われる。
// 変更を伴う3ステップは単一トランザクションに包まれ、途中の失敗は
// 先行ステップも含めて全てロールバックされる。ストアが部分的に
// 変更された状態で残ることはない。
type Service struct {
	db         repository.TxBeginner
	userRepo   repository.UserRepository
	diveRepo   repository.DiveRepository
	reviewRepo repository.ReviewRepository
	notifier   Notifier
	metrics    Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// notifierとmetricsはnil許容。
func NewService(
	db repository.TxBeginner,
	userRepo repository.UserRepository,
	diveRepo repository.DiveRepository,
	reviewRepo repository.ReviewRepository,
	notifier Notifier,
	metrics Recorder,
) *Service {
	return &Service{
		db:         db,
		userRepo:   userRepo,
		diveRepo:   diveRepo,
		reviewRepo: reviewRepo,
		notifier:   notifier,
		metrics:    metrics,
	}
}

// Result はアカウント削除の結果を表す。
type Result struct {
	DeletedDives      int64
	AnonymizedReviews int64
}

// DeleteAccount はアカウント削除ワークフローを実行する。
//
// 呼び出し側が提示したidNumberが保存済みのID番号と完全一致しない場合は
// 一切の変更を行わずに拒否する。アカウントが存在しない場合も同様。
// ダイブ記録の削除・レビューの匿名化・ユーザー行の削除は同一
// トランザクションで実行され、全て可視になるか全て取り消されるかの
// いずれかになる。コミット後にベストエフォートのメール通知を行う。
func (s *Service) DeleteAccount(ctx context.Context, userID int64, idNumber string) (*Result, error) {
	if strings.TrimSpace(idNumber) == "" {
		return nil, model.NewValidationError("アカウント削除にはID番号が必要です")
	}

	// 検証ステップ。変更は一切行わない。
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account for deletion: %w", err)
	}
	if user == nil {
		s.record(outcomeNotFound)
		return nil, model.NewUserNotFoundError()
	}
	if user.IDNumber != idNumber {
		// 監査用にアカウントIDのみ記録する。トークンはログに残さない。
		slog.Warn("account deletion denied: id number mismatch",
			slog.Int64("user_id", userID),
		)
		s.record(outcomeDenied)
		return nil, model.NewDeletionDeniedError()
	}

	slog.Info("account deletion started",
		slog.Int64("user_id", userID),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.record(outcomeRolledBack)
		return nil, fmt.Errorf("failed to begin deletion transaction: %w", err)
	}
	// コミットに到達しなかった場合は全ステップを巻き戻す。
	defer tx.Rollback()

	// ダイブ記録を削除。0行は成功。
	deletedDives, err := s.diveRepo.DeleteByOwnerTx(ctx, tx, user.IDNumber)
	if err != nil {
		s.record(outcomeRolledBack)
		return nil, fmt.Errorf("failed to delete dive records: %w", err)
	}

	// レビューを匿名化。表示名が空の場合は照合対象がないためスキップする。
	var anonymized int64
	if name := user.FullName(); name != "" {
		anonymized, err = s.reviewRepo.AnonymizeByAuthorTx(ctx, tx, name)
		if err != nil {
			s.record(outcomeRolledBack)
			return nil, fmt.Errorf("failed to anonymize reviews: %w", err)
		}
	}

	// ユーザー行を削除。0行（既に消えている）は失敗として全体を巻き戻す。
	affected, err := s.userRepo.DeleteByIDTx(ctx, tx, userID)
	if err != nil {
		s.record(outcomeRolledBack)
		return nil, fmt.Errorf("failed to delete user row: %w", err)
	}
	if affected == 0 {
		s.record(outcomeRolledBack)
		return nil, model.NewDeletionFailedError()
	}

	if err := tx.Commit(); err != nil {
		s.record(outcomeRolledBack)
		return nil, fmt.Errorf("failed to commit deletion transaction: %w", err)
	}

	slog.Info("account deletion committed",
		slog.Int64("user_id", userID),
		slog.Int64("deleted_dives", deletedDives),
		slog.Int64("anonymized_reviews", anonymized),
	)
	s.record(outcomeCommitted)
	if s.metrics != nil && anonymized > 0 {
		s.metrics.RecordReviewsAnonymized(anonymized)
	}

	// コミット後の通知。リクエストをブロックせず、失敗はログのみ。
	if s.notifier != nil {
		go s.notify(user, anonymized)
	}

	return &Result{DeletedDives: deletedDives, AnonymizedReviews: anonymized}, nil
}

// notify は削除完了メールを送信する。失敗しても削除結果には影響しない。
func (s *Service) notify(user *model.UserAccount, anonymized int64) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.SendAccountDeleted(ctx, user, anonymized); err != nil {
		slog.Error("failed to send account deletion notification",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAccountDeletion(outcome)
	}
}
