package dates

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

func TestNormalizeAcceptsBothForms(t *testing.T) {
	iso, err := Normalize("2024-03-05")
	require.NoError(t, err)
	eu, err := Normalize("05-03-2024")
	require.NoError(t, err)

	assert.True(t, iso.Equal(eu), "both forms of the same day must normalize to one instant")
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), iso)
}

func TestNormalizeRejectsUnknownShape(t *testing.T) {
	for _, raw := range []string{"2024/03/05", "5-3-2024", "March 5 2024", "", "20240305"} {
		_, err := Normalize(raw)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr), "raw=%q", raw)
		assert.Equal(t, appErrors.ErrInvalidDateFormat.Code, appErr.Code, "raw=%q", raw)
	}
}

func TestNormalizeRejectsImpossibleDates(t *testing.T) {
	for _, raw := range []string{"2024-02-30", "2024-13-01", "31-02-2024"} {
		_, err := Normalize(raw)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr), "raw=%q", raw)
		assert.Equal(t, appErrors.ErrInvalidDateValue.Code, appErr.Code, "raw=%q", raw)
	}
}

func TestNormalizeEndCoversWholeDay(t *testing.T) {
	end, err := NormalizeEnd("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 59, end.Second())

	start, err := Normalize("2024-03-05")
	require.NoError(t, err)
	assert.True(t, end.After(start), "single-day range must still span the day")
}

func TestISO(t *testing.T) {
	d, err := Normalize("05-03-2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", ISO(d))
}
