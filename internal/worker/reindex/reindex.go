// Package reindex は商品コレクション全体を検索インデックスへ再同期するジョブを提供する。
// 変更イベントの取りこぼしで生じたインデックスとの差分を埋めるための保守用ジョブ。
package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/repository"
)

// ProductIndexer は商品ドキュメントを検索インデックスへ登録するインターフェース。
type ProductIndexer interface {
	IndexProduct(ctx context.Context, doc *model.Document) error
}

// Result はジョブ1回分の集計。
type Result struct {
	Indexed int
	Failed  int
}

// Job は商品ドキュメントを全件読み出して検索レコードをアップサートするジョブ。
// アップサートは冪等であり、何度実行しても同じ結果となる。
type Job struct {
	lister  repository.DocumentLister
	indexer ProductIndexer
	logger  *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(lister repository.DocumentLister, indexer ProductIndexer, logger *slog.Logger) *Job {
	return &Job{lister: lister, indexer: indexer, logger: logger}
}

// Run は全商品を再インデックスする。
// 個々の商品の失敗では走査を止めず、全ての失敗をまとめて返す。
// 走査自体の失敗（ストアへの接続エラー等）はその時点で打ち切る。
func (j *Job) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var (
		res  Result
		errs error
	)

	err := j.lister.ForEach(ctx, model.CollectionProducts, func(doc *model.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.indexer.IndexProduct(ctx, doc); err != nil {
			res.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", doc.Path(), err))
			j.logger.Warn("商品の再インデックスに失敗しました",
				slog.String("product_id", doc.ID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		res.Indexed++
		return nil
	})
	if err != nil {
		j.logger.Error("再インデックスジョブの実行に失敗しました",
			slog.Int("indexed_count", res.Indexed),
			slog.String("error", err.Error()),
		)
		return res, fmt.Errorf("failed to scan products: %w", err)
	}

	j.logger.Info("再インデックスジョブが完了しました",
		slog.Int("indexed_count", res.Indexed),
		slog.Int("failed_count", res.Failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return res, errs
}
