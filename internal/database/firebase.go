// Package database はバックエンドサービス（Firebase、MongoDB、Redis）への接続を提供する。
package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseConfig はFirebase Admin SDKの初期化設定。
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	StorageBucket   string
}

// FirebaseClients はプロセス全体で共有するFirebaseのクライアント群。
// 各クライアントは起動時に1回だけ生成し、関数呼び出し間で再利用する。
type FirebaseClients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
	Bucket    *storage.BucketHandle

	storage *storage.Client
}

// clientOptions は認証情報ファイルが指定されていればそれを使うオプションを返す。
// 未指定の場合はApplication Default Credentialsに委ねる。
func clientOptions(cfg FirebaseConfig) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

// NewFirebaseApp はFirebase Appを初期化する。
func NewFirebaseApp(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firebase project ID is empty")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// OpenFirebase はAuth、Firestore、Cloud Storageの各クライアントを生成する。
// Firestoreを使わない構成ではwithFirestoreにfalseを渡す。
func OpenFirebase(ctx context.Context, cfg FirebaseConfig, withFirestore bool) (*FirebaseClients, error) {
	app, err := NewFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	clients := &FirebaseClients{Auth: authClient}

	if withFirestore {
		fs, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		clients.Firestore = fs
	}

	// バケットハンドルは名前を明示して取得するため、storage.Clientを直接生成する。
	sc, err := storage.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	clients.storage = sc
	clients.Bucket = sc.Bucket(cfg.StorageBucket)

	return clients, nil
}

// Close は保持しているクライアントを閉じる。
func (c *FirebaseClients) Close() error {
	var firstErr error
	if c.Firestore != nil {
		if err := c.Firestore.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close firestore client: %w", err)
		}
	}
	if c.storage != nil {
		if err := c.storage.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close storage client: %w", err)
		}
	}
	return firstErr
}
