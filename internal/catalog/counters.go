package catalog

import (
	"context"
	"log/slog"

	"github.com/hitoshi/backoffice/internal/model"
)

// CounterAdjuster はブランド・カテゴリのカウンタをアトミックに増減するインターフェース。
type CounterAdjuster interface {
	Adjust(ctx context.Context, brandID, categoryID string, delta int64) error
}

// Counters は商品の作成・削除に合わせて集計カウンタを増減するサービス。
// 2つのカウンタの更新は互いにアトミックだが、商品ドキュメントの書き込みとはアトミックではない。
type Counters struct {
	repo   CounterAdjuster
	logger *slog.Logger
}

// NewCounters はCountersを生成する。
func NewCounters(repo CounterAdjuster, logger *slog.Logger) *Counters {
	return &Counters{repo: repo, logger: logger}
}

// OnProductCreated は参照先ブランドとカテゴリのamountを1増やす。
func (c *Counters) OnProductCreated(ctx context.Context, doc *model.Document) error {
	return c.adjust(ctx, doc, 1)
}

// OnProductDeleted は参照先ブランドとカテゴリのamountを1減らす。
func (c *Counters) OnProductDeleted(ctx context.Context, doc *model.Document) error {
	return c.adjust(ctx, doc, -1)
}

func (c *Counters) adjust(ctx context.Context, doc *model.Document, delta int64) error {
	// カウンタはbrandとcategoryの参照だけで決まり、imagesなど他のフィールドの形式には依存しない
	brand, category, err := model.ProductRefs(doc)
	if err != nil {
		return err
	}

	if err := c.repo.Adjust(ctx, brand, category, delta); err != nil {
		return err
	}

	c.logger.Info("集計カウンタを更新しました",
		slog.String("product_id", doc.ID),
		slog.String("brand", brand),
		slog.String("category", category),
		slog.Int64("delta", delta),
	)
	return nil
}
