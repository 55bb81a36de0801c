package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"escpos-printer/internal/service"
	"escpos-printer/pkg/printer"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", printer.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: 10 bytes", service.ErrPayloadTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("print line: %w", printer.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("open: %w", printer.ErrResourceExhausted), http.StatusServiceUnavailable},
		{fmt.Errorf("%w after 100ms: %w", printer.ErrFlushTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("cut: %w: %w", printer.ErrTransport, errors.New("eio")), http.StatusBadGateway},
		{&service.JobError{JobID: "j1", Type: service.JobFeed, Err: fmt.Errorf("feed: %w", printer.ErrTransport)}, http.StatusBadGateway},
		{context.Canceled, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}
