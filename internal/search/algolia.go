// Package search は外部検索インデックス（Algolia）への同期を提供する。
package search

import (
	"context"
	"fmt"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	"github.com/hitoshi/backoffice/internal/model"
)

// DefaultIndexName は商品レコードを格納するインデックス名。
const DefaultIndexName = "products"

// Index はAlgoliaインデックスのうち本サービスが利用する操作の部分集合。
// *search.Index がこのインターフェースをみたす。
// optsにはcontext.Contextを渡すことができる。
type Index interface {
	SaveObject(object interface{}, opts ...interface{}) (search.SaveObjectRes, error)
	DeleteObject(objectID string, opts ...interface{}) (search.DeleteTaskRes, error)
}

// Config はAlgoliaクライアントの設定。
// 管理キーは書き込みに、検索キーはフロントエンド配布用に保持する。
type Config struct {
	AppID     string
	AdminKey  string
	SearchKey string
	IndexName string
}

// AlgoliaIndexer はAlgoliaを使用した検索インデックスアダプタ。
type AlgoliaIndexer struct {
	index     Index
	indexName string
}

// NewAlgoliaIndexer は設定からAlgoliaクライアントを生成し、インデックスを初期化する。
// クライアントはプロセス起動時に1回だけ生成し、呼び出し間で再利用する。
func NewAlgoliaIndexer(cfg Config) *AlgoliaIndexer {
	name := cfg.IndexName
	if name == "" {
		name = DefaultIndexName
	}
	client := search.NewClient(cfg.AppID, cfg.AdminKey)
	return NewIndexer(client.InitIndex(name), name)
}

// NewIndexer は初期化済みのIndexからAlgoliaIndexerを生成する。
func NewIndexer(index Index, indexName string) *AlgoliaIndexer {
	return &AlgoliaIndexer{index: index, indexName: indexName}
}

// Name はインデックス名を返す。
func (i *AlgoliaIndexer) Name() string {
	return i.indexName
}

// Save はレコードをobjectIDをキーとしてまるごとアップサートする。
// 差分更新は行わず、既存レコードは全フィールドが置き換わる。
func (i *AlgoliaIndexer) Save(ctx context.Context, record model.SearchRecord) error {
	if record.ObjectID() == "" {
		return fmt.Errorf("failed to save search record: objectID is empty")
	}
	if _, err := i.index.SaveObject(map[string]any(record), ctx); err != nil {
		return fmt.Errorf("failed to save search record %s: %w", record.ObjectID(), err)
	}
	return nil
}

// Delete はobjectIDのレコードをインデックスから削除する。
func (i *AlgoliaIndexer) Delete(ctx context.Context, objectID string) error {
	if _, err := i.index.DeleteObject(objectID, ctx); err != nil {
		return fmt.Errorf("failed to delete search record %s: %w", objectID, err)
	}
	return nil
}
