package main

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitForShutdown_Signal(t *testing.T) {
	signals := make(chan os.Signal, 1)
	signals <- syscall.SIGTERM

	assert.NoError(t, waitForShutdown(signals, make(chan error)))
}

func TestWaitForShutdown_ServerError(t *testing.T) {
	listenErr := errors.New("listen tcp :8080: bind: address already in use")
	serverErr := make(chan error, 1)
	serverErr <- listenErr

	err := waitForShutdown(make(chan os.Signal), serverErr)
	assert.ErrorIs(t, err, listenErr)
}
