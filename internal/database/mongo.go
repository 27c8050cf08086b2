package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	mongoConnectTimeout = 10 * time.Second
	mongoPingTimeout    = 2 * time.Second
)

// MongoClientOptions は接続URIからクライアントオプションを組み立てる。
func MongoClientOptions(uri string) (*options.ClientOptions, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb connection URI is empty")
	}
	opts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb connection URI: %w", err)
	}
	return opts, nil
}

// OpenMongo はMongoDBに接続し、プライマリへの疎通を確認する。
func OpenMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts, err := MongoClientOptions(uri)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, mongoPingTimeout)
	defer cancelPing()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}
