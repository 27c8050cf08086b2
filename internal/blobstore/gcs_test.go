package blobstore

import "testing"

func TestObjectPath(t *testing.T) {
	tests := []struct {
		collection, parentID, filename string
		want                           string
	}{
		{"products", "p1", "a.jpg", "products/p1/a.jpg"},
		{"cats", "c1", "banner.png", "cats/c1/banner.png"},
		// 他のドキュメントの画像を指さないこと
		{"products", "p1", "../../cats/c9/hero.jpg", "products/p1/../../cats/c9/hero.jpg"},
		{"products", "p1", "./a.jpg", "products/p1/./a.jpg"},
		// 連続するスラッシュは別のオブジェクト名
		{"products", "p1", "a//b.jpg", "products/p1/a//b.jpg"},
	}

	for _, tt := range tests {
		got := ObjectPath(tt.collection, tt.parentID, tt.filename)
		if got != tt.want {
			t.Errorf("ObjectPath(%q, %q, %q) = %q, want %q", tt.collection, tt.parentID, tt.filename, got, tt.want)
		}
	}
}

func TestNewGCSBucket_Initializes(t *testing.T) {
	if NewGCSBucket(nil) == nil {
		t.Fatal("expected non-nil bucket")
	}
}
