package rpc

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/roomsync/internal/lock"
	"github.com/mmynk/roomsync/internal/service"
	"github.com/mmynk/roomsync/internal/storage"
)

var errInternal = errors.New("internal error")

// connectError maps service errors to Connect codes.
func connectError(procedure string, err error) error {
	switch {
	case service.IsValidation(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, service.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, service.ErrNotMember):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, lock.ErrLocked):
		return connect.NewError(connect.CodeAborted, err)
	default:
		slog.Error("RPC failed", "procedure", procedure, "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}
