package sqlutil

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ToNullUUID maps an optional id onto a nullable column value.
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// FromNullUUID returns nil for a NULL id column.
func FromNullUUID(val uuid.NullUUID) *uuid.UUID {
	if !val.Valid {
		return nil
	}
	id := val.UUID
	return &id
}

// FromSqlTime returns nil for a NULL timestamp column. Deadlines, cooldowns
// and compliance clocks are all nullable.
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}

// FromSqlString returns fallback for a NULL text column.
func FromSqlString(val sql.NullString, fallback string) string {
	if !val.Valid {
		return fallback
	}
	return val.String
}
