package model

import (
	"errors"
	"testing"
)

func TestNewSearchRecord_AddsObjectIDWithoutMutatingDocument(t *testing.T) {
	doc := &Document{
		Collection: CollectionProducts,
		ID:         "p1",
		Data: map[string]any{
			"name":     "Desk",
			"category": "cats1",
			"brand":    "brandA",
		},
	}

	rec := NewSearchRecord(doc)

	if rec.ObjectID() != "p1" {
		t.Errorf("ObjectID() = %q, want %q", rec.ObjectID(), "p1")
	}
	if rec["name"] != "Desk" {
		t.Errorf("name = %v, want %q", rec["name"], "Desk")
	}
	if len(rec) != 4 {
		t.Errorf("len(rec) = %d, want 4", len(rec))
	}
	if _, ok := doc.Data[FieldObjectID]; ok {
		t.Error("document data should not be mutated")
	}
}

func TestProductFromDocument(t *testing.T) {
	doc := &Document{
		Collection: CollectionProducts,
		ID:         "p1",
		Data: map[string]any{
			"category": "cats1",
			"brand":    "brandA",
			"images": []any{
				map[string]any{"name": "a.jpg"},
				map[string]any{"name": "b.jpg", "alt": "back"},
			},
		},
	}

	p, err := ProductFromDocument(doc)
	if err != nil {
		t.Fatalf("ProductFromDocument returned error: %v", err)
	}
	if p.Category != "cats1" || p.Brand != "brandA" {
		t.Errorf("refs = (%q, %q), want (cats1, brandA)", p.Category, p.Brand)
	}
	if len(p.Images) != 2 || p.Images[0].Name != "a.jpg" || p.Images[1].Name != "b.jpg" {
		t.Errorf("images = %+v", p.Images)
	}
}

func TestProductFromDocument_MissingRefs(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"no category", map[string]any{"brand": "brandA"}},
		{"no brand", map[string]any{"category": "cats1"}},
		{"empty brand", map[string]any{"category": "cats1", "brand": ""}},
		{"non string category", map[string]any{"category": 12, "brand": "brandA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProductFromDocument(&Document{Collection: CollectionProducts, ID: "p1", Data: tt.data})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Code != ErrCodeInvalidDocument {
				t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeInvalidDocument)
			}
		})
	}
}

func TestImagesFromDocument(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		images, err := ImagesFromDocument(&Document{ID: "c1", Data: map[string]any{}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(images) != 0 {
			t.Errorf("len(images) = %d, want 0", len(images))
		}
	})

	t.Run("element without name", func(t *testing.T) {
		images, err := ImagesFromDocument(&Document{ID: "c1", Data: map[string]any{
			"images": []any{map[string]any{"url": "x"}},
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(images) != 1 || images[0].Name != "" {
			t.Errorf("images = %+v, want one image with empty name", images)
		}
	})

	t.Run("not a list", func(t *testing.T) {
		_, err := ImagesFromDocument(&Document{ID: "c1", Data: map[string]any{"images": "a.jpg"}})
		if err == nil {
			t.Fatal("expected error for non-list images")
		}
	})
}

func TestAccount_Role(t *testing.T) {
	var nilAccount *Account
	if nilAccount.Role() != "" {
		t.Error("nil account should have empty role")
	}

	a := &Account{UID: "u1", Claims: RoleClaims("admin")}
	if a.Role() != "admin" {
		t.Errorf("Role() = %q, want %q", a.Role(), "admin")
	}
}
