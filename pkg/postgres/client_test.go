package postgres_test

import (
	"testing"

	"github.com/spounge-ai/sysaudit/pkg/postgres"
	"github.com/stretchr/testify/assert"
)

func TestLockIDStable(t *testing.T) {
	a := postgres.LockID("db01\x1fORCL\x1f\x1fsys_remote_password_connections")
	b := postgres.LockID("db01\x1fORCL\x1f\x1fsys_remote_password_connections")
	c := postgres.LockID("db02\x1fORCL\x1f\x1fsys_remote_password_connections")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
