// Package mail はアカウントイベントのメール通知を提供する。
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/hitoshi/divelog/internal/config"
	"github.com/hitoshi/divelog/internal/model"
)

// Notifier はアカウント削除完了通知の送信インターフェース。
type Notifier interface {
	SendAccountDeleted(ctx context.Context, user *model.UserAccount, anonymizedReviews int64) error
}

// NewFromConfig は設定に応じたNotifierを返す。
// SMTPホストが未設定の場合はログ出力のみのNotifierを返し、
// 開発環境でもメールサーバなしで削除フローを動かせるようにする。
func NewFromConfig(cfg *config.Config) Notifier {
	if cfg.SMTPHost == "" {
		slog.Info("SMTP is not configured, account deletion emails will be logged only")
		return &LogNotifier{}
	}
	return &SMTPNotifier{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.MailFrom,
	}
}

// SMTPNotifier はSMTP経由でプレーンテキストの通知メールを送信する。
type SMTPNotifier struct {
	host string
	port string
	user string
	pass string
	from string
}

// SendAccountDeleted はアカウント削除の完了通知を送信する。
// 送信失敗は呼び出し側でログに記録される。削除自体は既にコミット済みであり、
// この通知の成否が削除結果に影響することはない。
func (n *SMTPNotifier) SendAccountDeleted(ctx context.Context, user *model.UserAccount, anonymizedReviews int64) error {
	if user.Email == "" {
		return fmt.Errorf("account has no email address")
	}

	body := buildDeletionMessage(n.from, user, anonymizedReviews)
	addr := net.JoinHostPort(n.host, n.port)

	var auth smtp.Auth
	if n.user != "" {
		auth = smtp.PlainAuth("", n.user, n.pass, n.host)
	}

	// net/smtpはコンテキストを受け取らないため、キャンセル済みなら送信前に打ち切る。
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := smtp.SendMail(addr, auth, n.from, []string{user.Email}, body); err != nil {
		return fmt.Errorf("failed to send deletion email: %w", err)
	}
	return nil
}

// buildDeletionMessage はRFC 5322形式のプレーンテキストメッセージを組み立てる。
func buildDeletionMessage(from string, user *model.UserAccount, anonymizedReviews int64) []byte {
	name := user.FullName()
	if name == "" {
		name = user.Email
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", user.Email)
	b.WriteString("Subject: Your account has been deleted\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", name)
	b.WriteString("Your account and all associated dive records have been permanently deleted.\r\n")
	if anonymizedReviews > 0 {
		fmt.Fprintf(&b, "%d review(s) you posted were anonymized and remain visible without your name.\r\n", anonymizedReviews)
	}
	b.WriteString("\r\nThank you for diving with us.\r\n")
	return []byte(b.String())
}

// LogNotifier は送信の代わりにログへ記録するNotifier。
type LogNotifier struct{}

// SendAccountDeleted は通知内容をログに記録する。常に成功する。
func (n *LogNotifier) SendAccountDeleted(_ context.Context, user *model.UserAccount, anonymizedReviews int64) error {
	slog.Info("account deletion notice (email disabled)",
		slog.String("email", user.Email),
		slog.Int64("anonymized_reviews", anonymizedReviews),
	)
	return nil
}

// compile-time interface checks
var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
