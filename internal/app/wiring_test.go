package app

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/backoffice/internal/functions"
	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/repository"
	"github.com/hitoshi/backoffice/internal/trigger"
)

func TestBuildRegistry_RegistersAllFunctions(t *testing.T) {
	registry, err := buildRegistry(functions.Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := map[string]bool{}
	for _, fn := range registry.Functions() {
		names[fn.Name] = true
	}
	for _, want := range []string{
		functions.CreateUserDoc, functions.DeleteUserDoc, functions.UpdateEmailVerified,
		functions.CreateUserWithRole, functions.DeleteUserWithRole, functions.EditUserRole,
		functions.AddUserRoleByEmail, functions.IndexProduct, functions.ReindexProduct,
		functions.UnindexProduct, functions.DeleteProductImages, functions.DeleteCatImages,
		functions.CreateProduct, functions.DeleteProduct,
	} {
		if !names[want] {
			t.Errorf("function %s is not registered", want)
		}
	}
}

func TestBuildRegistry_ProductDeleteBindsThreeFunctions(t *testing.T) {
	registry, err := buildRegistry(functions.Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bound := registry.Bound(trigger.Event{
		Type:       trigger.KindDocumentDeleted,
		Collection: model.CollectionProducts,
		DocumentID: "p1",
		Before:     map[string]any{"name": "Tee"},
	})
	if len(bound) != 3 {
		t.Errorf("bound functions = %d, want 3", len(bound))
	}
}

func TestMongoStores_WiresEveryRepository(t *testing.T) {
	// mongo.Connectは接続を遅延するため、サーバー無しでもクライアントを生成できる。
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Disconnect(context.Background())

	s := mongoStores(repository.NewMongoStore(client, "backoffice_test"))
	if s.profiles == nil || s.roles == nil || s.counters == nil || s.lister == nil || s.health == nil {
		t.Errorf("stores has nil repository: %+v", s)
	}
}
