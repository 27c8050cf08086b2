// Package account はアカウントのライフサイクルに追従してプロフィールを管理するドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/repository"
)

// Service はアカウント作成・削除イベントとメール確認呼び出しを処理するサービス層。
type Service struct {
	profiles repository.ProfileRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(profiles repository.ProfileRepository) *Service {
	return &Service{profiles: profiles}
}

// OnUserCreated はアカウント作成時にcreatedTimestampのみを持つプロフィールを作成する。
func (s *Service) OnUserCreated(ctx context.Context, acct model.Account) error {
	if acct.UID == "" {
		return model.NewInvalidArgumentError("uidが空です")
	}

	if err := s.profiles.Create(ctx, acct.UID); err != nil {
		return fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}

	slog.Info("プロフィールを作成しました",
		slog.String("uid", acct.UID),
	)
	return nil
}

// OnUserDeleted はアカウント削除時にプロフィールとロールを1つのバッチで削除する。
// 片方だけが残ることはない。
func (s *Service) OnUserDeleted(ctx context.Context, acct model.Account) error {
	if acct.UID == "" {
		return model.NewInvalidArgumentError("uidが空です")
	}

	if err := s.profiles.DeleteWithRole(ctx, acct.UID); err != nil {
		return fmt.Errorf("プロフィールとロールの削除に失敗しました: %w", err)
	}

	slog.Info("プロフィールとロールを削除しました",
		slog.String("uid", acct.UID),
	)
	return nil
}

// MarkEmailVerified はプロフィールにメール確認済みフラグと確認日時をマージ書き込みする。
// プロフィールが未作成でもエラーにはならない。
func (s *Service) MarkEmailVerified(ctx context.Context, uid string) error {
	if uid == "" {
		return model.NewInvalidArgumentError("uidが空です")
	}

	if err := s.profiles.MarkEmailVerified(ctx, uid); err != nil {
		return fmt.Errorf("メール確認状態の更新に失敗しました: %w", err)
	}

	slog.Info("メール確認状態を更新しました",
		slog.String("uid", uid),
	)
	return nil
}
