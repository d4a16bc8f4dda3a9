// Package store defines the durable record backend boundary and a factory
// over its implementations.
package store

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/supportkit/kbase/pkg/store/consts"
	"github.com/supportkit/kbase/pkg/store/inmemory"
	mongostore "github.com/supportkit/kbase/pkg/store/mongo"
	"github.com/supportkit/kbase/pkg/store/mssql"
	"github.com/supportkit/kbase/pkg/store/mysql"
	"github.com/supportkit/kbase/pkg/store/neo4j"
	"github.com/supportkit/kbase/pkg/store/pgvector"
	"github.com/supportkit/kbase/pkg/store/postgres"
	"github.com/supportkit/kbase/pkg/store/qdrant"
	redisstore "github.com/supportkit/kbase/pkg/store/redis"
	"github.com/supportkit/kbase/pkg/store/sqlite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeMSSQL    Type = "mssql"
	TypeRedis    Type = "redis"
	TypeNeo4j    Type = "neo4j"
	TypeMongo    Type = "mongo"
	TypeQdrant   Type = "qdrant"
	TypePgvector Type = "pgvector"
	TypeInMemory Type = "inmemory"
)

// Config holds configuration for store adapters.
type Config struct {
	Type             Type
	ConnectionString string
	Username         string
	Password         string
	DBName           string
	// Qdrant options
	Host       string
	Port       int
	Collection string
	VectorSize uint64
}

// New creates a new record store based on the configuration.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeSQLite:
		return sqlite.New(cfg.ConnectionString)

	case TypePostgres:
		return postgres.New(cfg.ConnectionString)

	case TypePgvector:
		return pgvector.New(cfg.ConnectionString)

	case TypeRedis:
		opts, err := goredis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redisstore.New(client), nil

	case TypeNeo4j:
		dbName := "neo4j" // Default Neo4j DB is typically "neo4j"
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return neo4j.New(cfg.ConnectionString, cfg.Username, cfg.Password, dbName)

	case TypeMongo:
		opts := options.Client().ApplyURI(cfg.ConnectionString)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return mongostore.New(client, dbName, consts.TableNameRecords), nil

	case TypeQdrant:
		collection := consts.TableNameRecords
		if cfg.Collection != "" {
			collection = cfg.Collection
		}
		return qdrant.New(cfg.Host, cfg.Port, collection, cfg.VectorSize)

	case TypeMySQL:
		return mysql.New(cfg.ConnectionString)

	case TypeMSSQL:
		return mssql.New(cfg.ConnectionString)

	case TypeInMemory:
		return inmemory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
