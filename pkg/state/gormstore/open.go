package gormstore

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialector picks a gorm dialect from dsn. Postgres URLs and key/value DSNs
// select postgres, DSNs containing "@tcp(" select mysql and anything else is
// treated as a sqlite path.
func Dialector(dsn string) (gorm.Dialector, error) {
	trimmed := strings.TrimSpace(dsn)
	switch {
	case trimmed == "":
		return nil, fmt.Errorf("gormstore: dsn is required")
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"),
		strings.Contains(trimmed, "host=") && strings.Contains(trimmed, "dbname="):
		return postgres.Open(trimmed), nil
	case strings.HasPrefix(trimmed, "mysql://"):
		return mysql.Open(strings.TrimPrefix(trimmed, "mysql://")), nil
	case strings.Contains(trimmed, "@tcp("):
		return mysql.Open(trimmed), nil
	default:
		return sqlite.Open(strings.TrimPrefix(trimmed, "sqlite://")), nil
	}
}

// DialectName reports which driver Dialector would use for dsn.
func DialectName(dsn string) string {
	dialector, err := Dialector(dsn)
	if err != nil {
		return ""
	}
	return dialector.Name()
}
