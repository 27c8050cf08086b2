// Package catalog は商品カタログの整合性を保つリアクションを提供する。
// 検索インデックスの同期、ブランド・カテゴリの集計カウンタ、画像オブジェクトの削除を扱う。
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/backoffice/internal/model"
)

// SearchIndex は検索インデックスへの書き込みインターフェース。
type SearchIndex interface {
	Save(ctx context.Context, record model.SearchRecord) error
	Delete(ctx context.Context, objectID string) error
}

// Indexer は商品ドキュメントを検索インデックスへ同期するサービス。
type Indexer struct {
	index  SearchIndex
	logger *slog.Logger
}

// NewIndexer はIndexerを生成する。
func NewIndexer(index SearchIndex, logger *slog.Logger) *Indexer {
	return &Indexer{index: index, logger: logger}
}

// IndexProduct は作成された商品をインデックスへ登録する。
func (i *Indexer) IndexProduct(ctx context.Context, doc *model.Document) error {
	return i.save(ctx, doc)
}

// ReindexProduct は更新後の商品データでインデックスのレコードを置き換える。
// 更新前データとの差分は取らない。
func (i *Indexer) ReindexProduct(ctx context.Context, before, after *model.Document) error {
	if after == nil {
		return model.NewInvalidDocumentError(before.Path(), "更新後のデータがありません")
	}
	return i.save(ctx, after)
}

// UnindexProduct は削除された商品のレコードをインデックスから削除する。
func (i *Indexer) UnindexProduct(ctx context.Context, doc *model.Document) error {
	if err := i.index.Delete(ctx, doc.ID); err != nil {
		return err
	}
	i.logger.Info("検索レコードを削除しました", slog.String("product_id", doc.ID))
	return nil
}

func (i *Indexer) save(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("failed to index product: document ID is empty")
	}
	if err := i.index.Save(ctx, model.NewSearchRecord(doc)); err != nil {
		return err
	}
	i.logger.Info("検索レコードを登録しました",
		slog.String("product_id", doc.ID),
		slog.Int("fields", len(doc.Data)),
	)
	return nil
}
