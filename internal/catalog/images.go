package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/backoffice/internal/blobstore"
	"github.com/hitoshi/backoffice/internal/model"
)

// DefaultImageDeleteConcurrency は1ドキュメントあたりの同時削除数の既定値。
const DefaultImageDeleteConcurrency = 8

// BlobDeleter はオブジェクトストレージの削除インターフェース。
type BlobDeleter interface {
	Delete(ctx context.Context, objectPath string) error
}

// ImageRecorder は削除した画像数を記録するインターフェース。
type ImageRecorder interface {
	RecordImagesDeleted(count int)
}

// ImageCleaner は削除されたドキュメントが参照する画像オブジェクトを削除するサービス。
// 商品・カテゴリのどちらにも、コレクション名をパラメータとして同じ処理を適用する。
type ImageCleaner struct {
	blobs       BlobDeleter
	recorder    ImageRecorder
	logger      *slog.Logger
	concurrency int
}

// NewImageCleaner はImageCleanerを生成する。
// concurrencyが0以下の場合はDefaultImageDeleteConcurrencyを使用する。
func NewImageCleaner(blobs BlobDeleter, recorder ImageRecorder, logger *slog.Logger, concurrency int) *ImageCleaner {
	if concurrency <= 0 {
		concurrency = DefaultImageDeleteConcurrency
	}
	return &ImageCleaner{
		blobs:       blobs,
		recorder:    recorder,
		logger:      logger,
		concurrency: concurrency,
	}
}

// DeleteImages はdocのimagesに含まれる全画像を並行に削除する。
// パスは {collection}/{doc.ID}/{image.name}。
// 全ての削除が完了（成功または失敗）するまで待ち、1件でも失敗していれば全失敗をまとめたエラーを返す。
func (c *ImageCleaner) DeleteImages(ctx context.Context, collection string, doc *model.Document) error {
	images, err := model.ImagesFromDocument(doc)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}

	errs := make([]error, len(images))
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, img := range images {
		g.Go(func() error {
			if img.Name == "" {
				errs[i] = model.NewInvalidDocumentError(doc.Path(), fmt.Sprintf("images[%d]にnameがありません", i))
				return nil
			}
			errs[i] = c.blobs.Delete(ctx, blobstore.ObjectPath(collection, doc.ID, img.Name))
			return nil
		})
	}
	_ = g.Wait()

	deleted := 0
	for _, e := range errs {
		if e == nil {
			deleted++
		}
	}
	if c.recorder != nil {
		c.recorder.RecordImagesDeleted(deleted)
	}

	if err := multierr.Combine(errs...); err != nil {
		c.logger.Error("画像の削除に失敗しました",
			slog.String("document", doc.Path()),
			slog.Int("deleted", deleted),
			slog.Int("failed", len(images)-deleted),
			slog.String("error", err.Error()),
		)
		return err
	}

	c.logger.Info("画像を削除しました",
		slog.String("document", doc.Path()),
		slog.Int("deleted", deleted),
	)
	return nil
}
