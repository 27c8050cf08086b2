package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/backoffice/internal/model"
)

// 関数呼び出し結果のラベル値
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Handler はイベントで起動される関数の本体。
type Handler func(ctx context.Context, ev Event) error

// CallableHandler は直接呼び出される関数の本体。
// dataは呼び出し元が送ったJSONで、戻り値は呼び出し元にJSONで返される。
type CallableHandler func(ctx context.Context, data json.RawMessage) (any, error)

// Function は名前付きの関数とその起動条件。
// KindがKindCallableの場合はCall、それ以外はHandleを設定する。
type Function struct {
	Name       string
	Kind       Kind
	Collection string
	Handle     Handler
	Call       CallableHandler
}

// Deduplicator はイベントの重複配信を検出するインターフェース。
type Deduplicator interface {
	// Acquire はキーを処理済みとして記録する。
	// キーはイベントIDと関数名の組で、既に記録済みの場合はfalseを返す。
	Acquire(ctx context.Context, key string) (bool, error)

	// Release はAcquireの記録を取り消し、再配信時に再処理されるようにする。
	Release(ctx context.Context, key string) error
}

// Recorder は関数呼び出しの計測インターフェース。
type Recorder interface {
	RecordInvocation(function string, result string, duration time.Duration)
	RecordDeduplicated()
}

// Option はRegistryの設定を変更する。
type Option func(*Registry)

// WithDeduplicator は重複配信の検出に使用するDeduplicatorを設定する。
func WithDeduplicator(d Deduplicator) Option {
	return func(r *Registry) {
		r.dedupe = d
	}
}

// WithRecorder は計測に使用するRecorderを設定する。
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// Registry は登録済み関数の一覧を保持し、イベントと呼び出しを振り分ける。
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
	dedupe    Deduplicator
	recorder  Recorder
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{functions: make(map[string]Function)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register は関数を登録する。
// 同名の関数が登録済みの場合や、起動条件と本体が一致しない場合はエラーを返す。
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" {
		return errors.New("function name is empty")
	}
	switch {
	case fn.Kind == KindCallable:
		if fn.Call == nil {
			return fmt.Errorf("callable %s has no Call", fn.Name)
		}
	case fn.Kind.IsAuth():
		if fn.Handle == nil {
			return fmt.Errorf("function %s has no Handle", fn.Name)
		}
	case fn.Kind.IsDocument():
		if fn.Handle == nil {
			return fmt.Errorf("function %s has no Handle", fn.Name)
		}
		if fn.Collection == "" {
			return fmt.Errorf("document function %s has no collection", fn.Name)
		}
	default:
		return fmt.Errorf("function %s has unknown kind %q", fn.Name, fn.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.functions[fn.Name]; ok {
		return fmt.Errorf("function %s is already registered", fn.Name)
	}
	r.functions[fn.Name] = fn
	return nil
}

// Functions は登録済み関数を名前順に返す。
func (r *Registry) Functions() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fns := make([]Function, 0, len(r.functions))
	for _, fn := range r.functions {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns
}

// Bound はevに対して起動される関数を名前順に返す。
func (r *Registry) Bound(ev Event) []Function {
	var bound []Function
	for _, fn := range r.Functions() {
		if fn.Kind != ev.Type {
			continue
		}
		if fn.Kind.IsDocument() && fn.Collection != ev.Collection {
			continue
		}
		bound = append(bound, fn)
	}
	return bound
}

// Dispatch はevに対応する全ての関数を並行に実行し、全て完了するまで待つ。
// 関数同士は互いに独立しており、失敗した関数があっても他の関数は実行される。
// 1つでも失敗した場合は全失敗をまとめたエラーを返す。
//
// Deduplicatorが設定されている場合、処理済みの記録は(イベントID, 関数名)ごとに行う。
// 再配信時には前回成功した関数を飛ばし、失敗した関数だけを再実行する。
func (r *Registry) Dispatch(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	bound := r.Bound(ev)
	if len(bound) == 0 {
		slog.Debug("イベントに対応する関数がありません",
			slog.String("event_id", ev.ID),
			slog.String("type", string(ev.Type)),
			slog.String("collection", ev.Collection),
		)
		return nil
	}

	errs := make([]error, len(bound))
	var g errgroup.Group
	for i, fn := range bound {
		g.Go(func() error {
			errs[i] = r.dispatchOne(ctx, fn, ev)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

// dispatchOne は1つの関数をevで実行する。
// 実行前に処理済みマークを取得し、失敗した場合はマークを解除する。
func (r *Registry) dispatchOne(ctx context.Context, fn Function, ev Event) error {
	key := r.dedupeKey(ev.ID, fn.Name)
	if key != "" {
		first, err := r.dedupe.Acquire(ctx, key)
		if err != nil {
			return fmt.Errorf("%s: 重複配信の確認に失敗しました: %w", fn.Name, err)
		}
		if !first {
			if r.recorder != nil {
				r.recorder.RecordDeduplicated()
			}
			slog.Info("処理済みのため関数をスキップしました",
				slog.String("function", fn.Name),
				slog.String("event_id", ev.ID),
				slog.String("type", string(ev.Type)),
			)
			return nil
		}
	}

	err := r.invoke(ctx, fn.Name, ev, func(ctx context.Context) error {
		return fn.Handle(ctx, ev)
	})
	if err != nil && key != "" {
		if relErr := r.dedupe.Release(ctx, key); relErr != nil {
			slog.Warn("重複配信マークの解除に失敗しました",
				slog.String("function", fn.Name),
				slog.String("event_id", ev.ID),
				slog.String("error", relErr.Error()),
			)
		}
	}
	return err
}

// dedupeKey は処理済みマークのキーを返す。
// Deduplicatorを使わない場合は空文字を返す。
func (r *Registry) dedupeKey(eventID, function string) string {
	if r.dedupe == nil || eventID == "" {
		return ""
	}
	return eventID + "/" + function
}

// Call は名前で指定した呼び出し可能関数を実行する。
func (r *Registry) Call(ctx context.Context, name string, data json.RawMessage) (any, error) {
	r.mu.RLock()
	fn, ok := r.functions[name]
	r.mu.RUnlock()
	if !ok || fn.Kind != KindCallable {
		return nil, model.NewFunctionNotFoundError(name)
	}

	var result any
	err := r.invoke(ctx, name, Event{Type: KindCallable}, func(ctx context.Context) error {
		res, err := fn.Call(ctx, data)
		result = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// invoke は関数を1回実行し、ログと計測を行う。
// 関数内のpanicはエラーとして返す。
func (r *Registry) invoke(ctx context.Context, name string, ev Event, run func(ctx context.Context) error) (err error) {
	attrs := []any{
		slog.String("function", name),
		slog.String("event_id", ev.ID),
	}
	if ev.DocumentID != "" {
		attrs = append(attrs, slog.String("document_id", ev.DocumentID))
	}
	if ev.User != nil {
		attrs = append(attrs, slog.String("uid", ev.User.UID))
	}

	start := time.Now()
	slog.Debug("関数を開始します", attrs...)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("function %s panicked: %v", name, rec)
		}

		result := resultSuccess
		if err != nil {
			result = resultFailure
		}
		elapsed := time.Since(start)
		if r.recorder != nil {
			r.recorder.RecordInvocation(name, result, elapsed)
		}

		attrs = append(attrs, slog.Duration("duration", elapsed))
		if err != nil {
			slog.Error("関数が失敗しました", append(attrs, slog.String("error", err.Error()))...)
			return
		}
		slog.Info("関数が完了しました", attrs...)
	}()

	if err := run(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
