package sqlutil

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/peterldowns/testy/check"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: apperr.KindConcurrencyConflict},
		{name: "deadlock", err: fmt.Errorf("update auction: %w", &pq.Error{Code: "40P01"}), want: apperr.KindConcurrencyConflict},
		{name: "lock not available", err: &pq.Error{Code: "55P03"}, want: apperr.KindConcurrencyConflict},
		{name: "unique violation passes through", err: &pq.Error{Code: "23505"}, want: apperr.KindInternal},
		{name: "plain error", err: errors.New("boom"), want: apperr.KindInternal},
		{name: "typed error", err: apperr.SlotsFull("full"), want: apperr.KindSlotsFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.want, apperr.KindOf(TranslateError(tt.err)))
		})
	}

	check.Nil(t, TranslateError(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert auction: %w", &pq.Error{Code: "23505", Constraint: "auctions_one_open_per_player"})

	check.True(t, IsUniqueViolation(err, ""))
	check.True(t, IsUniqueViolation(err, "auctions_one_open_per_player"))
	check.False(t, IsUniqueViolation(err, "bids_pkey"))
	check.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestNullConverters(t *testing.T) {
	id := uuid.New()
	check.Equal(t, &id, FromNullUUID(ToNullUUID(&id)))
	check.Nil(t, FromNullUUID(ToNullUUID(nil)))

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	check.Equal(t, &now, FromSqlTime(sql.NullTime{Time: now.In(time.FixedZone("CEST", 2*3600)), Valid: true}))
	check.Nil(t, FromSqlTime(sql.NullTime{}))

	check.Equal(t, "fallback", FromSqlString(sql.NullString{}, "fallback"))
}
