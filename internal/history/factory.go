package history

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// StoreType defines the type of store to create
type StoreType string

const (
	// MemoryStoreType is an in-memory history
	MemoryStoreType StoreType = "memory"
	// MongoStoreType is a MongoDB-backed history
	MongoStoreType StoreType = "mongo"
)

// ParseStoreType maps a configuration value to a StoreType, defaulting to memory
func ParseStoreType(value string) StoreType {
	if strings.EqualFold(strings.TrimSpace(value), string(MongoStoreType)) {
		return MongoStoreType
	}
	return MemoryStoreType
}

// BuildMongoURI constructs the URI of the history database from MONGO_URI or
// from its individual components
func BuildMongoURI() string {
	user := os.Getenv("MONGO_USER")
	pass := os.Getenv("MONGO_PASSWORD")

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		if strings.Contains(uri, "@") || user == "" || pass == "" {
			return uri
		}

		parts := strings.SplitN(uri, "://", 2)
		if len(parts) != 2 {
			log.Println("MONGO_URI format not recognized, using as-is")
			return uri
		}
		log.Println("Built MongoDB URI with credentials from MONGO_USER and MONGO_PASSWORD")
		return fmt.Sprintf("%s://%s:%s@%s", parts[0], user, pass, parts[1])
	}

	host := envOr("MONGO_HOST", "localhost")
	port := envOr("MONGO_PORT", "27017")
	auth := envOr("MONGO_AUTH_DB", "admin")

	if user != "" && pass != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/?authSource=%s", user, pass, host, port, auth)
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port)
}

// CreateStore creates a store of the specified type from environment configuration
func CreateStore(ctx context.Context, storeType StoreType) (Store, error) {
	switch storeType {
	case MemoryStoreType:
		maxEntries := 0
		if v := os.Getenv("HISTORY_MAX_ENTRIES"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid HISTORY_MAX_ENTRIES %q", v)
			}
			maxEntries = n
		}
		return NewMemoryStore(maxEntries), nil

	case MongoStoreType:
		config := NewDefaultMongoConfig()
		config.URI = BuildMongoURI()
		config.Database = envOr("MONGO_DB_NAME", config.Database)
		config.Collection = envOr("MONGO_COLLECTION", config.Collection)

		log.Printf("Using MongoDB history in %s.%s", config.Database, config.Collection)
		return NewMongoStore(ctx, config)

	default:
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
