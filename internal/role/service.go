// Package role はカスタムクレームによるロール管理のドメインロジックを提供する。
//
// ロール操作はいずれも複数の外部書き込みからなり、全体としてアトミックではない。
// クレームの変更は常に対応するロールドキュメントの書き込みより先に行う。
// 途中のステップで失敗した場合は*PartialFailureErrorで完了済みステップを返す。
package role

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/repository"
)

// Provider はロール管理で使用するIdP操作のインターフェース。
type Provider interface {
	CreateUser(ctx context.Context, email, password string) (*model.Account, error)
	SetRoleClaim(ctx context.Context, uid, role string) error
	DeleteUser(ctx context.Context, uid string) error
	GetUserByEmail(ctx context.Context, email string) (*model.Account, error)
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithCompensation はcreateUserWithRoleがアカウント作成後に失敗した場合に
// 作成したアカウントを削除するかどうかを設定する。
func WithCompensation(enabled bool) Option {
	return func(s *Service) {
		s.compensate = enabled
	}
}

// Service はロール管理のサービス層。
type Service struct {
	provider   Provider
	roles      repository.RoleRepository
	compensate bool
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(provider Provider, roles repository.RoleRepository, opts ...Option) *Service {
	s := &Service{provider: provider, roles: roles}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUserWithRole はメール確認済みのアカウントを作成し、ロールクレームを設定したうえで
// ロールドキュメントを作成する。
func (s *Service) CreateUserWithRole(ctx context.Context, email, password, role string) (*model.Account, error) {
	if email == "" || password == "" || role == "" {
		return nil, model.NewInvalidArgumentError("email・password・roleは必須です")
	}

	var acct *model.Account
	err := runSteps(ctx, "createUserWithRole", []step{
		{StepCreateUser, func(ctx context.Context) error {
			created, err := s.provider.CreateUser(ctx, email, password)
			if err != nil {
				return err
			}
			acct = created
			return nil
		}},
		{StepSetRoleClaim, func(ctx context.Context) error {
			if err := s.provider.SetRoleClaim(ctx, acct.UID, role); err != nil {
				return err
			}
			acct.Claims = model.RoleClaims(role)
			return nil
		}},
		{StepWriteRoleRecord, func(ctx context.Context) error {
			return s.roles.Set(ctx, acct.UID, email, role)
		}},
	})
	if err != nil {
		var pf *PartialFailureError
		if errors.As(err, &pf) && s.compensate {
			s.rollbackCreate(ctx, acct.UID, pf)
		}
		logFailure("createUserWithRole", err)
		return nil, err
	}

	slog.Info("ロール付きアカウントを作成しました",
		slog.String("uid", acct.UID),
		slog.String("role", role),
	)
	return acct, nil
}

// rollbackCreate は作成済みのアカウントを削除し、結果をpfに記録する。
// アカウント削除によりクレームも失われるため、ロールドキュメントは書き込まれていない。
func (s *Service) rollbackCreate(ctx context.Context, uid string, pf *PartialFailureError) {
	if err := s.provider.DeleteUser(ctx, uid); err != nil {
		pf.CompensationErr = err
		slog.Error("作成済みアカウントの削除に失敗しました",
			slog.String("uid", uid),
			slog.String("error", err.Error()),
		)
		return
	}
	pf.Compensated = true
	slog.Warn("作成済みアカウントを削除しました",
		slog.String("uid", uid),
	)
}

// DeleteUserWithRole はアカウントを削除する。
// ロールドキュメントはアカウント削除イベントの処理で削除される。
func (s *Service) DeleteUserWithRole(ctx context.Context, uid string) error {
	if uid == "" {
		return model.NewInvalidArgumentError("uidは必須です")
	}

	err := runSteps(ctx, "deleteUserWithRole", []step{
		{StepDeleteUser, func(ctx context.Context) error {
			return s.provider.DeleteUser(ctx, uid)
		}},
	})
	if err != nil {
		logFailure("deleteUserWithRole", err)
		return err
	}

	slog.Info("アカウントを削除しました",
		slog.String("uid", uid),
	)
	return nil
}

// EditUserRole はロールクレームを変更し、既存のロールドキュメントのroleを更新する。
// ロールドキュメントが存在しない場合はクレーム変更済みのPartialFailureErrorとなる。
func (s *Service) EditUserRole(ctx context.Context, uid, role string) error {
	if uid == "" || role == "" {
		return model.NewInvalidArgumentError("uid・roleは必須です")
	}

	err := runSteps(ctx, "editUserRole", []step{
		{StepSetRoleClaim, func(ctx context.Context) error {
			return s.provider.SetRoleClaim(ctx, uid, role)
		}},
		{StepWriteRoleRecord, func(ctx context.Context) error {
			return s.roles.UpdateRole(ctx, uid, role)
		}},
	})
	if err != nil {
		logFailure("editUserRole", err)
		return err
	}

	slog.Info("ロールを変更しました",
		slog.String("uid", uid),
		slog.String("role", role),
	)
	return nil
}

// AddUserRoleByEmail はメールアドレスからアカウントを解決し、ロールクレームを設定したうえで
// ロールドキュメントをマージ書き込みする。
func (s *Service) AddUserRoleByEmail(ctx context.Context, email, role string) (*model.Account, error) {
	if email == "" || role == "" {
		return nil, model.NewInvalidArgumentError("email・roleは必須です")
	}

	var acct *model.Account
	err := runSteps(ctx, "addUserRoleByEmail", []step{
		{StepLookupUser, func(ctx context.Context) error {
			found, err := s.provider.GetUserByEmail(ctx, email)
			if err != nil {
				return err
			}
			acct = found
			return nil
		}},
		{StepSetRoleClaim, func(ctx context.Context) error {
			if err := s.provider.SetRoleClaim(ctx, acct.UID, role); err != nil {
				return err
			}
			acct.Claims = model.RoleClaims(role)
			return nil
		}},
		{StepWriteRoleRecord, func(ctx context.Context) error {
			return s.roles.Merge(ctx, acct.UID, email, role)
		}},
	})
	if err != nil {
		logFailure("addUserRoleByEmail", err)
		return nil, err
	}

	slog.Info("ロールを付与しました",
		slog.String("uid", acct.UID),
		slog.String("role", role),
	)
	return acct, nil
}

func logFailure(operation string, err error) {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		slog.Error("ロール操作が途中で失敗しました",
			slog.String("operation", operation),
			slog.Any("completed", pf.Completed),
			slog.String("failed", pf.Failed),
			slog.Bool("compensated", pf.Compensated),
			slog.String("error", pf.Err.Error()),
		)
		return
	}
	slog.Error("ロール操作に失敗しました",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
