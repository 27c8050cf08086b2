package role

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/backoffice/internal/model"
)

// ステップ名。PartialFailureErrorのCompleted・Failedに記録される。
const (
	StepCreateUser      = "createUser"
	StepLookupUser      = "lookupUser"
	StepSetRoleClaim    = "setRoleClaim"
	StepWriteRoleRecord = "writeRoleRecord"
	StepDeleteUser      = "deleteUser"
)

// step は複数ステップ操作の1ステップ。
type step struct {
	name string
	run  func(ctx context.Context) error
}

// PartialFailureError は複数ステップ操作が途中で失敗したことを表す。
// Completedに記録されたステップの結果は取り消されずに残っている
// （Compensatedがtrueの場合を除く）。
type PartialFailureError struct {
	Operation       string
	Completed       []string
	Failed          string
	Err             error
	Compensated     bool
	CompensationErr error
}

// Error はerrorインターフェースを実装する。
func (e *PartialFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: step %s failed after [%s]: %v",
		e.Operation, e.Failed, strings.Join(e.Completed, ", "), e.Err)
	if e.Compensated {
		b.WriteString(" (compensated)")
	}
	if e.CompensationErr != nil {
		fmt.Fprintf(&b, " (compensation failed: %v)", e.CompensationErr)
	}
	return b.String()
}

// Unwrap は失敗したステップの元のエラーを返す。
func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// APIError は呼び出し元に返す統一エラーを返す。
func (e *PartialFailureError) APIError() *model.APIError {
	return model.NewPartialFailureError(e.Operation, e.Completed)
}

// runSteps はstepsを順に実行し、最初に失敗したステップで中断する。
// 1ステップ目の失敗はそのままのエラーを返し、
// 2ステップ目以降の失敗は*PartialFailureErrorを返す。
func runSteps(ctx context.Context, operation string, steps []step) error {
	completed := make([]string, 0, len(steps))
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			if len(completed) == 0 {
				return fmt.Errorf("%s: %s: %w", operation, s.name, err)
			}
			return &PartialFailureError{
				Operation: operation,
				Completed: completed,
				Failed:    s.name,
				Err:       err,
			}
		}
		completed = append(completed, s.name)
	}
	return nil
}
