package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

func TestRandomScheduleHonoursCatalog(t *testing.T) {
	c := weekCatalog(t)
	s := RandomSchedule(c, newRand(3))

	require.Len(t, s, c.TotalSessions())
	require.NoError(t, CheckSessions(c, s))
	require.NoError(t, CheckPlacements(c, s))

	// subjects are emitted in catalog order
	assert.Equal(t, "alg", s[0].Subject)
	assert.Equal(t, "web", s[len(s)-1].Subject)
}

func TestCloneDoesNotAlias(t *testing.T) {
	c := weekCatalog(t)
	s := RandomSchedule(c, newRand(3))
	clone := s.Clone()
	clone[0].Room = "elsewhere"
	assert.NotEqual(t, s[0].Room, clone[0].Room)
	assert.Nil(t, Schedule(nil).Clone())
}

func TestCheckSessionsReportsDrift(t *testing.T) {
	c := weekCatalog(t)
	s := RandomSchedule(c, newRand(5))
	s = append(s[:1], s[2:]...)
	s = append(s, Assignment{Subject: "ghost", Teacher: "t1", Room: "a"})

	err := CheckSessions(c, s)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternalConsistency.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "alg: want 4 got 3")
	assert.Contains(t, appErr.Message, "ghost: not in catalog")
}

func TestCheckPlacements(t *testing.T) {
	c := weekCatalog(t)
	s := Schedule{
		{Subject: "alg", Teacher: "t2", Room: "a", Day: 0, Slot: 0},
		{Subject: "db", Teacher: "t2", Room: "z", Day: 9, Slot: 0},
	}
	err := CheckPlacements(c, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `teacher "t2" does not teach "alg"`)
	assert.Contains(t, err.Error(), `unknown room "z"`)
	assert.Contains(t, err.Error(), "outside the grid")
}
