package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm sentinel", gorm.ErrDuplicatedKey, true},
		{"postgres", errors.New(`ERROR: duplicate key value violates unique constraint "idx_provider_event" (SQLSTATE 23505)`), true},
		{"mysql", errors.New("Error 1062: Duplicate entry 'fakebank-evt-1' for key 'idx_provider_event'"), true},
		{"sqlite", errors.New("UNIQUE constraint failed: payment_events.provider, payment_events.provider_event_id"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestIsDuplicateKeyErr_LiveInsert(t *testing.T) {
	conn := openSQLite(t)
	type claim struct {
		ID   int64  `gorm:"primaryKey"`
		Name string `gorm:"uniqueIndex"`
	}
	require.NoError(t, conn.AutoMigrate(&claim{}))

	require.NoError(t, conn.Create(&claim{ID: 1, Name: "one"}).Error)
	err := conn.Create(&claim{ID: 2, Name: "one"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyErr(err))
}
