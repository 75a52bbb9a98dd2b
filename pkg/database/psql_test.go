package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RetryInterval 與 NewMongoDB 一樣是完整的 duration, 不再乘上秒
func TestNewGormConnection_RetryIntervalIsDuration(t *testing.T) {
	start := time.Now()
	db, err := NewGormConnection(Connection{
		ConnectStr:    PostgresDSN("127.0.0.1", 1, "nobody", "nothing", "none"),
		RetryCount:    3,
		RetryInterval: 20 * time.Millisecond,
	})

	require.Error(t, err)
	assert.Nil(t, db)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestNewGormConnection_ZeroRetries(t *testing.T) {
	_, err := NewGormConnection(Connection{ConnectStr: PostgresDSN("127.0.0.1", 1, "u", "p", "d")})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=members sslmode=disable TimeZone=UTC",
		PostgresDSN("db", 5432, "u", "p", "members"))
}
