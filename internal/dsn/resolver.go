// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"
)

// DetectDBType detects the store type from a connection string.
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DBTypePostgreSQL
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "pinot://"):
		return DBTypePinot
	}
	return DBTypeUnknown
}

func resolverFor(dsn string) (Resolver, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, NewParseError(dsn, "empty connection string", "provide a broker URL or a PostgreSQL DSN")
	}
	switch DetectDBType(dsn) {
	case DBTypePinot:
		return NewBrokerResolver(), nil
	case DBTypePostgreSQL:
		return NewPostgreSQLResolver(), nil
	default:
		return nil, NewParseError(dsn, "unknown store type", "use http://, https://, postgres:// or postgresql://")
	}
}

// Parse parses a connection string and returns its normalized form.
// This is the main entry point for connection string handling.
func Parse(dsn string) (string, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return "", err
	}

	info, err := resolver.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return "", err
	}

	return resolver.Normalize(info)
}

// Validate validates a connection string without normalizing it.
func Validate(dsn string) error {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return err
	}
	return resolver.Validate(strings.TrimSpace(dsn))
}

// ParseInfo parses a connection string and returns detailed info.
func ParseInfo(dsn string) (*DSNInfo, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return nil, err
	}
	return resolver.Parse(strings.TrimSpace(dsn))
}
