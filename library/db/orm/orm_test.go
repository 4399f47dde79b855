package orm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDBSQLite(t *testing.T) {
	db, err := NewDB(context.Background(), DialInfo{
		Dialect: DialectSQLite,
		DSN:     "file:orm_test?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	require.Equal(t, 1, one)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestNewDBRejectsBadInput(t *testing.T) {
	_, err := NewDB(context.Background(), DialInfo{Dialect: "oracle", DSN: "x"}, nil)
	require.ErrorContains(t, err, "unsupported db dialect")

	_, err = NewDB(context.Background(), DialInfo{Dialect: DialectSQLite, DSN: "  "}, nil)
	require.Error(t, err)
}

func TestSanitizeLoggedSQLParams(t *testing.T) {
	longString := fmt.Sprintf("%0257d", 0)

	l := &truncatingParamsLogger{maxLoggedParamLength: defaultMaxLoggedParamLength}
	sql, params := l.ParamsFilter(context.Background(), "SELECT ?", longString, []byte("short"), 42)
	require.Equal(t, "SELECT ?", sql)
	require.Equal(t, "<string:len=257,truncated>", params[0])
	require.Equal(t, []byte("short"), params[1])
	require.Equal(t, 42, params[2])

	_, params = l.ParamsFilter(context.Background(), "SELECT 1")
	require.Empty(t, params)
}
