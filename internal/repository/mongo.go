package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hitoshi/backoffice/internal/model"
)

// MongoStore はMongoDBのデータベースハンドルを保持する。
// Firestoreのバッチ書き込みはマルチドキュメントトランザクションで代替するため、
// レプリカセット構成が前提となる。
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore はMongoStoreを生成する。
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(database),
	}
}

// collection はコレクションハンドルを返す。ドキュメントIDは _id に格納する。
func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// withTransaction はfnを1つのトランザクション内で実行する。
// fnがエラーを返した場合はアボートされ、どの書き込みも適用されない。
func (s *MongoStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping はMongoDBへの疎通を確認する。
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

// ForEach はコレクションの全ドキュメントに対してfnを呼び出す。
func (s *MongoStore) ForEach(ctx context.Context, collection string, fn func(doc *model.Document) error) error {
	cur, err := s.collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}
		if err := fn(DocumentFromBSON(collection, raw)); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("failed to iterate documents: %w", err)
	}
	return nil
}

// DocumentFromBSON はMongoDBのドキュメントをmodel.Documentに変換する。
// _idはドキュメントIDとして取り出し、Dataには含めない。
func DocumentFromBSON(collection string, raw bson.M) *model.Document {
	doc := &model.Document{Collection: collection, Data: map[string]any{}}
	for k, v := range raw {
		if k == "_id" {
			doc.ID = fmt.Sprint(normalizeBSON(v))
			continue
		}
		doc.Data[k] = normalizeBSON(v)
	}
	return doc
}

// normalizeBSON はBSON固有の型をFirestore/JSONと同じGoの型に揃える。
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = normalizeBSON(x)
		}
		return m
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case primitive.A:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = normalizeBSON(x)
		}
		return s
	case primitive.DateTime:
		return t.Time()
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}

// compile-time interface check
var (
	_ DocumentLister = (*MongoStore)(nil)
	_ HealthChecker  = (*MongoStore)(nil)
)
