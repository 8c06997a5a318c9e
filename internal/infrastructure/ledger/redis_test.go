package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisLedger_Load(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedisLedger(db, "ledger:")
	ctx := context.TODO()

	// Success
	mock.ExpectSMembers("ledger:daily").SetVal([]string{"u1", "u2"})
	ids, err := l.Load(ctx, "daily")
	assert.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "u1")

	// Error
	mock.ExpectSMembers("ledger:daily").SetErr(errors.New("redis error"))
	_, err = l.Load(ctx, "daily")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis smembers failure")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedisLedger_Append(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedisLedger(db, "ledger:")
	ctx := context.TODO()

	mock.ExpectSAdd("ledger:daily", "u1").SetVal(1)
	assert.NoError(t, l.Append(ctx, "daily", "u1"))

	// Existing member still succeeds
	mock.ExpectSAdd("ledger:daily", "u1").SetVal(0)
	assert.NoError(t, l.Append(ctx, "daily", "u1"))

	mock.ExpectSAdd("ledger:daily", "u2").SetErr(errors.New("redis error"))
	err := l.Append(ctx, "daily", "u2")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis sadd failure")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRedisLedger_Clear(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedisLedger(db, "")
	ctx := context.TODO()

	mock.ExpectDel("daily").SetVal(1)
	assert.NoError(t, l.Clear(ctx, "daily"))

	mock.ExpectDel("daily").SetErr(errors.New("redis error"))
	err := l.Clear(ctx, "daily")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis del failure")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
