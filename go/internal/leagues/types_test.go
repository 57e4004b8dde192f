package leagues

import (
	"testing"

	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestNormalizeRoles(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "NONE"},
		{" none ", "NONE"},
		{"all", "ALL"},
		{"a,p", "P,A"},
		{"D, D ,C", "D,C"},
		{"A,C,D,P", "ALL"},
	}
	for _, tc := range cases {
		got, err := normalizeRoles(tc.raw)
		assert.NoError(t, err)
		check.Equal(t, tc.want, got)
	}

	_, err := normalizeRoles("P,X")
	check.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestValidateStatus(t *testing.T) {
	check.NoError(t, validateStatus(models.LeagueStatusRepairActive))
	check.True(t, apperr.Is(validateStatus("paused"), apperr.KindValidation))
}
