package dberr

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/domain"
)

func TestTranslate(t *testing.T) {
	plain := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"conflict", &db.Error{Op: db.OpCreate, Err: db.ErrKeyExists}, domain.ErrAlreadyExists},
		{"index exists", db.ErrIndexExists, domain.ErrAlreadyExists},
		{"missing", db.ErrKeyNotFound, domain.ErrNotFound},
		{"cursor", &db.Error{Op: db.OpQuery, Err: db.ErrInvalidCursor}, domain.ErrInvalidContinuationToken},
		{"unsupported", &db.Error{Op: db.OpQuery, Err: db.ErrUnsupported}, domain.ErrUnsupportedOperation},
		{"transient", &db.Error{Op: db.OpQuery, Err: plain, Transient: true}, domain.ErrStoreUnavailable},
		{"caller error kept", domain.NewUnsupportedOperation("Date", "Before"), domain.ErrUnsupportedOperation},
		{"context kept", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.in)
			if !errors.Is(got, tt.want) {
				t.Fatalf("Translate(%v) = %v, want %v in chain", tt.in, got, tt.want)
			}
			if !errors.Is(got, tt.in) {
				t.Errorf("original error lost from chain: %v", got)
			}
		})
	}
}

func TestTranslate_Permanent(t *testing.T) {
	err := &db.Error{Op: db.OpQuery, Err: errors.New("disk I/O error")}
	got := Translate(err)
	if got != error(err) {
		t.Fatalf("expected permanent error unchanged, got %v", got)
	}
	if errors.Is(got, domain.ErrStoreUnavailable) {
		t.Error("permanent error must not map to ErrStoreUnavailable")
	}
	if Translate(nil) != nil {
		t.Error("Translate(nil) != nil")
	}
}
