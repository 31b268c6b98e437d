package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDateBoundaries(t *testing.T) {
	today := time.Date(2026, time.March, 2, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name  string
		date  string
		valid bool
	}{
		{"today", "02/03/2026", true},
		{"exactly 30 days ahead", "01/04/2026", true},
		{"31 days ahead", "02/04/2026", false},
		{"yesterday", "01/03/2026", false},
		{"malformed", "2026-03-02", false},
		{"impossible", "31/02/2026", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ValidateDate(tt.date, today, 30)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.date, d.Format("02/01/2006"))
				return
			}
			var v *ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, ReasonInvalidDate, v.Reason)
		})
	}
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("(11) 98765-4321"))
	assert.NoError(t, ValidatePhone("1134567890"))
	for _, bad := range []string{"123", "", "123456789", "123456789012"} {
		err := ValidatePhone(bad)
		require.Error(t, err, bad)
		assert.Equal(t, ReasonInvalidPhone, err.Error())
	}
	assert.Equal(t, "11987654321", Digits("+(11) 98765-4321"[1:]))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Ana"))
	assert.NoError(t, ValidateName("  José da Silva  "))
	assert.Error(t, ValidateName("  Jo  "))
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateName(string(long)))
	assert.NoError(t, ValidateName(string(long[:100])))
}

func TestValidateTime(t *testing.T) {
	c, err := ValidateTime("14:30")
	require.NoError(t, err)
	assert.Equal(t, "14:30", c.String())

	_, err = ValidateTime("2pm")
	assert.True(t, IsValidation(err))
}

func TestCodeGenerator(t *testing.T) {
	fixed := time.Date(2026, time.March, 2, 9, 5, 7, 0, time.UTC)
	g := NewCodeGenerator(func() time.Time { return fixed })

	first := g.Next()
	second := g.Next()
	assert.Equal(t, "AG020326090507", first)
	assert.Equal(t, "AG020326090508", second, "same-second calls move to the next second")
	assert.Len(t, first, 14)
}
