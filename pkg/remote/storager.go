package remote

import (
	"fmt"
	"strings"

	_ "go.beyondstorage.io/services/minio"
	_ "go.beyondstorage.io/services/s3/v3"

	"go.beyondstorage.io/v5/services"
	"go.beyondstorage.io/v5/types"
)

// Open builds a storager from a connection string such as
// "s3://bucket/prefix?credential=hmac:KEY:SECRET&endpoint=https:host:443".
// Only the s3 and minio services are registered.
func Open(connStr string) (types.Storager, error) {
	if strings.TrimSpace(connStr) == "" {
		return nil, fmt.Errorf("remote connection string is required")
	}

	store, err := services.NewStoragerFromString(connStr)
	if err != nil {
		return nil, fmt.Errorf("opening remote %s: %w", redact(connStr), err)
	}

	return store, nil
}

// redact hides the query string, which carries credentials.
func redact(connStr string) string {
	if i := strings.IndexByte(connStr, '?'); i >= 0 {
		return connStr[:i] + "?***"
	}
	return connStr
}
