package database

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisHealthCheck_Healthy(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	assert.NoError(t, RedisHealthCheck(context.Background(), client))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Unhealthy(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	err := RedisHealthCheck(context.Background(), client)
	assert.ErrorContains(t, err, "redis health check failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
