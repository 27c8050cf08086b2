package functions

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/trigger"
)

// --- モック ---

// callLog は呼び出された操作を記録する。
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) sorted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]string(nil), l.calls...)
	sort.Strings(out)
	return out
}

type mockAccounts struct{ log *callLog }

func (m *mockAccounts) OnUserCreated(ctx context.Context, acct model.Account) error {
	m.log.add("created:" + acct.UID)
	return nil
}
func (m *mockAccounts) OnUserDeleted(ctx context.Context, acct model.Account) error {
	m.log.add("deleted:" + acct.UID)
	return nil
}
func (m *mockAccounts) MarkEmailVerified(ctx context.Context, uid string) error {
	m.log.add("verified:" + uid)
	return nil
}

type mockRoles struct {
	log           *callLog
	createAccount func(email, role string) (*model.Account, error)
}

func (m *mockRoles) CreateUserWithRole(ctx context.Context, email, password, role string) (*model.Account, error) {
	m.log.add("createUserWithRole:" + email)
	if m.createAccount != nil {
		return m.createAccount(email, role)
	}
	return &model.Account{UID: "new-uid", Email: email, EmailVerified: true, Claims: model.RoleClaims(role)}, nil
}
func (m *mockRoles) DeleteUserWithRole(ctx context.Context, uid string) error {
	m.log.add("deleteUserWithRole:" + uid)
	return nil
}
func (m *mockRoles) EditUserRole(ctx context.Context, uid, role string) error {
	m.log.add("editUserRole:" + uid + ":" + role)
	return nil
}
func (m *mockRoles) AddUserRoleByEmail(ctx context.Context, email, role string) (*model.Account, error) {
	m.log.add("addUserRoleByEmail:" + email)
	return &model.Account{UID: "u1", Email: email}, nil
}

type mockCatalog struct{ log *callLog }

func (m *mockCatalog) IndexProduct(ctx context.Context, doc *model.Document) error {
	m.log.add("index:" + doc.ID)
	return nil
}
func (m *mockCatalog) ReindexProduct(ctx context.Context, before, after *model.Document) error {
	m.log.add("reindex:" + after.ID)
	return nil
}
func (m *mockCatalog) UnindexProduct(ctx context.Context, doc *model.Document) error {
	m.log.add("unindex:" + doc.ID)
	return nil
}
func (m *mockCatalog) OnProductCreated(ctx context.Context, doc *model.Document) error {
	m.log.add("increment:" + doc.ID)
	return nil
}
func (m *mockCatalog) OnProductDeleted(ctx context.Context, doc *model.Document) error {
	m.log.add("decrement:" + doc.ID)
	return nil
}
func (m *mockCatalog) DeleteImages(ctx context.Context, collection string, doc *model.Document) error {
	m.log.add("images:" + collection + "/" + doc.ID)
	return nil
}

func newTestRegistry(t *testing.T) (*trigger.Registry, *callLog, *mockRoles) {
	t.Helper()
	log := &callLog{}
	cat := &mockCatalog{log: log}
	roles := &mockRoles{log: log}
	reg := trigger.NewRegistry()
	err := Register(reg, Deps{
		Accounts: &mockAccounts{log: log},
		Roles:    roles,
		Indexer:  cat,
		Counters: cat,
		Images:   cat,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg, log, roles
}

// --- テスト ---

func TestRegister_AllFunctions(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	want := []string{
		AddUserRoleByEmail, CreateProduct, CreateUserDoc, CreateUserWithRole, DeleteCatImages,
		DeleteProduct, DeleteProductImages, DeleteUserDoc, DeleteUserWithRole, EditUserRole,
		IndexProduct, ReindexProduct, UnindexProduct, UpdateEmailVerified,
	}
	sort.Strings(want)

	fns := reg.Functions()
	if len(fns) != len(want) {
		t.Fatalf("registered %d functions, want %d", len(fns), len(want))
	}
	for i, fn := range fns {
		if fn.Name != want[i] {
			t.Errorf("functions[%d] = %s, want %s", i, fn.Name, want[i])
		}
	}
}

func TestDispatch_Bindings(t *testing.T) {
	tests := []struct {
		name string
		ev   trigger.Event
		want []string
	}{
		{
			name: "アカウント作成",
			ev:   trigger.Event{ID: "1", Type: trigger.KindUserCreated, User: &trigger.User{UID: "u1"}},
			want: []string{"created:u1"},
		},
		{
			name: "アカウント削除",
			ev:   trigger.Event{ID: "2", Type: trigger.KindUserDeleted, User: &trigger.User{UID: "u1"}},
			want: []string{"deleted:u1"},
		},
		{
			name: "商品作成",
			ev:   trigger.Event{ID: "3", Type: trigger.KindDocumentCreated, Collection: "products", DocumentID: "p1", After: map[string]any{}},
			want: []string{"increment:p1", "index:p1"},
		},
		{
			name: "商品更新",
			ev:   trigger.Event{ID: "4", Type: trigger.KindDocumentUpdated, Collection: "products", DocumentID: "p1", Before: map[string]any{}, After: map[string]any{}},
			want: []string{"reindex:p1"},
		},
		{
			name: "商品削除",
			ev:   trigger.Event{ID: "5", Type: trigger.KindDocumentDeleted, Collection: "products", DocumentID: "p1", Before: map[string]any{}},
			want: []string{"decrement:p1", "images:products/p1", "unindex:p1"},
		},
		{
			name: "カテゴリ削除",
			ev:   trigger.Event{ID: "6", Type: trigger.KindDocumentDeleted, Collection: "cats", DocumentID: "c1", Before: map[string]any{}},
			want: []string{"images:cats/c1"},
		},
		{
			name: "カテゴリ作成は対象外",
			ev:   trigger.Event{ID: "7", Type: trigger.KindDocumentCreated, Collection: "cats", DocumentID: "c1", After: map[string]any{}},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, log, _ := newTestRegistry(t)
			if err := reg.Dispatch(context.Background(), tt.ev); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			got := log.sorted()
			if len(got) != len(tt.want) {
				t.Fatalf("calls = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("calls[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCall_CreateUserWithRole(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	res, err := reg.Call(context.Background(), CreateUserWithRole,
		json.RawMessage(`{"email":"a@x.com","password":"p","role":"admin"}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	acct, ok := res.(*AccountResult)
	if !ok {
		t.Fatalf("result type = %T, want *AccountResult", res)
	}
	if acct.Email != "a@x.com" || !acct.EmailVerified || acct.Claims["role"] != "admin" {
		t.Errorf("result = %+v", acct)
	}
}

func TestCall_Validation(t *testing.T) {
	tests := []struct {
		name     string
		function string
		data     string
	}{
		{"data なし", UpdateEmailVerified, ``},
		{"null", UpdateEmailVerified, `null`},
		{"uid なし", DeleteUserWithRole, `{}`},
		{"JSONでない", EditUserRole, `{"uid":`},
		{"メールアドレス不正", AddUserRoleByEmail, `{"email":"not-an-email","role":"admin"}`},
		{"パスワードなし", CreateUserWithRole, `{"email":"a@x.com","role":"admin"}`},
		{"role なし", EditUserRole, `{"uid":"u1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, log, _ := newTestRegistry(t)
			_, err := reg.Call(context.Background(), tt.function, json.RawMessage(tt.data))
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidArgument {
				t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
			}
			if len(log.sorted()) != 0 {
				t.Errorf("service should not be called, got %v", log.sorted())
			}
		})
	}
}

func TestCall_PropagatesServiceError(t *testing.T) {
	reg, _, roles := newTestRegistry(t)
	svcErr := errors.New("EMAIL_EXISTS")
	roles.createAccount = func(email, role string) (*model.Account, error) { return nil, svcErr }

	_, err := reg.Call(context.Background(), CreateUserWithRole,
		json.RawMessage(`{"email":"a@x.com","password":"p","role":"admin"}`))
	if !errors.Is(err, svcErr) {
		t.Errorf("error = %v, want %v", err, svcErr)
	}
}
