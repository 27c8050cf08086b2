package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/trigger"
)

var validate = validator.New()

// UIDRequest はuidのみを受け取る呼び出しのパラメータ。
type UIDRequest struct {
	UID string `json:"uid" validate:"required"`
}

// CreateUserWithRoleRequest はcreateUserWithRoleのパラメータ。
type CreateUserWithRoleRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

// EditUserRoleRequest はeditUserRoleのパラメータ。
type EditUserRoleRequest struct {
	UID  string `json:"uid" validate:"required"`
	Role string `json:"role" validate:"required"`
}

// AddUserRoleByEmailRequest はaddUserRoleByEmailのパラメータ。
type AddUserRoleByEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// AccountResult はアカウントを返す呼び出しの結果。
type AccountResult struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"emailVerified"`
	Claims        map[string]any `json:"customClaims,omitempty"`
}

// UIDResult は対象のuidのみを返す呼び出しの結果。
type UIDResult struct {
	UID string `json:"uid"`
}

func newAccountResult(a *model.Account) *AccountResult {
	return &AccountResult{
		UID:           a.UID,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Claims:        a.Claims,
	}
}

// decode はdataをreqにデコードし、validateタグで検証する。
func decode(data json.RawMessage, req any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return model.NewInvalidArgumentError("data がありません")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return model.NewInvalidArgumentError(fmt.Sprintf("data をデコードできません: %v", err))
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return model.NewInvalidArgumentError(strings.Join(fields, ", "))
		}
		return model.NewInvalidArgumentError(err.Error())
	}
	return nil
}

func callableFunctions(deps Deps) []trigger.Function {
	return []trigger.Function{
		{
			Name: UpdateEmailVerified,
			Kind: trigger.KindCallable,
			Call: func(ctx context.Context, data json.RawMessage) (any, error) {
				var req UIDRequest
				if err := decode(data, &req); err != nil {
					return nil, err
				}
				if err := deps.Accounts.MarkEmailVerified(ctx, req.UID); err != nil {
					return nil, err
				}
				return &UIDResult{UID: req.UID}, nil
			},
		},
		{
			Name: CreateUserWithRole,
			Kind: trigger.KindCallable,
			Call: func(ctx context.Context, data json.RawMessage) (any, error) {
				var req CreateUserWithRoleRequest
				if err := decode(data, &req); err != nil {
					return nil, err
				}
				acct, err := deps.Roles.CreateUserWithRole(ctx, req.Email, req.Password, req.Role)
				if err != nil {
					return nil, err
				}
				return newAccountResult(acct), nil
			},
		},
		{
			Name: DeleteUserWithRole,
			Kind: trigger.KindCallable,
			Call: func(ctx context.Context, data json.RawMessage) (any, error) {
				var req UIDRequest
				if err := decode(data, &req); err != nil {
					return nil, err
				}
				if err := deps.Roles.DeleteUserWithRole(ctx, req.UID); err != nil {
					return nil, err
				}
				return &UIDResult{UID: req.UID}, nil
			},
		},
		{
			Name: EditUserRole,
			Kind: trigger.KindCallable,
			Call: func(ctx context.Context, data json.RawMessage) (any, error) {
				var req EditUserRoleRequest
				if err := decode(data, &req); err != nil {
					return nil, err
				}
				if err := deps.Roles.EditUserRole(ctx, req.UID, req.Role); err != nil {
					return nil, err
				}
				return &UIDResult{UID: req.UID}, nil
			},
		},
		{
			Name: AddUserRoleByEmail,
			Kind: trigger.KindCallable,
			Call: func(ctx context.Context, data json.RawMessage) (any, error) {
				var req AddUserRoleByEmailRequest
				if err := decode(data, &req); err != nil {
					return nil, err
				}
				acct, err := deps.Roles.AddUserRoleByEmail(ctx, req.Email, req.Role)
				if err != nil {
					return nil, err
				}
				return newAccountResult(acct), nil
			},
		},
	}
}
