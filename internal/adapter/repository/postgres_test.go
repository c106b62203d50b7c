package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			"not-null violation is permanent",
			&pgconn.PgError{Code: "23502"},
			false,
		},
		{
			"check violation is permanent",
			&pgconn.PgError{Code: "23514"},
			false,
		},
		{
			"invalid text representation is permanent",
			&pgconn.PgError{Code: "22P02"},
			false,
		},
		{
			"serialization failure is transient",
			&pgconn.PgError{Code: "40001"},
			true,
		},
		{
			"deadlock is transient",
			&pgconn.PgError{Code: "40P01"},
			true,
		},
		{
			"connection exception is transient",
			&pgconn.PgError{Code: "08006"},
			true,
		},
		{
			"wrapped pg error keeps its class",
			fmt.Errorf("failed to insert threat report: %w", &pgconn.PgError{Code: "23505"}),
			false,
		},
		{
			"network error is transient",
			&net.OpError{Op: "read", Err: errors.New("connection reset by peer")},
			true,
		},
		{
			"context deadline is transient",
			context.DeadlineExceeded,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
