package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomyUnwrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", &ValidationError{Errors: []FieldError{{Field: "creators", Code: CodeRequired, Message: "missing"}}}, ErrValidation},
		{"unsupported schema", &UnsupportedSchemaError{Identifier: "10.5072/X", Namespace: "http://datacite.org/schema/kernel-2.2"}, ErrUnsupportedSchemaVersion},
		{"transition", &TransitionError{Event: EventPublish, From: StateDraft, Reason: "url missing"}, ErrInvalidTransition},
		{"wrapped not found", fmt.Errorf("revert: %w", ErrNotFound), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
			assert.False(t, IsRetryable(tt.err))
		})
	}
}

func TestUnsupportedSchemaErrorMessage(t *testing.T) {
	err := &UnsupportedSchemaError{Identifier: "10.14454/12345", Namespace: "http://datacite.org/schema/kernel-2.2"}
	assert.Equal(t, "DOI 10.14454/12345: Schema http://datacite.org/schema/kernel-2.2 is no longer supported", err.Error())
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("10.5072/ABC", []FieldError{
		{Field: "creators[0].nameType", Code: CodeEnumeration, Message: "bad value"},
		{Field: "titles", Code: CodeRequired, Message: "missing"},
	})
	assert.Equal(t, "DOI 10.5072/ABC: creators[0].nameType: bad value; titles: missing", err.Error())
	assert.Len(t, FieldErrors(err), 2)
	assert.NoError(t, NewValidationError("x", nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConflict))
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", ErrConflict)))
	assert.True(t, IsRetryable(&StoreError{Op: "commit", Err: errors.New("disk I/O error")}))
	assert.False(t, IsRetryable(&StoreError{Op: "get", Err: ErrNotFound}))
	assert.False(t, IsRetryable(ErrMethodNotAllowed))
	assert.False(t, IsRetryable(nil))
}
