// Package blobstore はオブジェクトストレージ（Cloud Storage）の操作を提供する。
package blobstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// ObjectPath は親ドキュメントに紐づく画像のオブジェクトパスを組み立てる。
// 形式: {collection}/{parentID}/{filename}
// オブジェクト名はリテラルとして扱われるため、".." や連続するスラッシュも正規化せずそのまま連結する。
func ObjectPath(collection, parentID, filename string) string {
	return collection + "/" + parentID + "/" + filename
}

// GCSBucket はCloud Storageのバケットを使用したBlob削除アダプタ。
type GCSBucket struct {
	bucket *storage.BucketHandle
}

// NewGCSBucket はGCSBucketを生成する。
func NewGCSBucket(bucket *storage.BucketHandle) *GCSBucket {
	return &GCSBucket{bucket: bucket}
}

// Delete はオブジェクトを削除する。
// 既に存在しないオブジェクトの削除は成功として扱い、再配信時の再実行を冪等にする。
func (b *GCSBucket) Delete(ctx context.Context, objectPath string) error {
	err := b.bucket.Object(objectPath).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}
	return nil
}
