package domainerrors_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "licensure/pkg/domain-errors"
	"licensure/pkg/platform/sentinel"
)

func TestWrapPreservesCause(t *testing.T) {
	err := dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "License not found")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Equal(t, "License not found", dErrors.MessageOf(err))
}

func TestWrapNilCause(t *testing.T) {
	assert.NoError(t, dErrors.Wrap(nil, dErrors.CodeInternal, "ignored"))
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := dErrors.New(dErrors.CodeConflict, "duplicate")
	outer := dErrors.Wrap(inner, dErrors.CodeInternal, "failed to create license")

	assert.True(t, dErrors.HasCode(outer, dErrors.CodeInternal))
	assert.True(t, dErrors.HasCode(outer, dErrors.CodeConflict))
	assert.False(t, dErrors.HasCode(outer, dErrors.CodeForbidden))
	assert.False(t, dErrors.HasCode(nil, dErrors.CodeInternal))
}

func TestMessageOfUncodedError(t *testing.T) {
	assert.Equal(t, "context canceled", dErrors.MessageOf(context.Canceled))
	assert.Equal(t, "", dErrors.MessageOf(nil))
}

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", dErrors.New(dErrors.CodeValidation, "bad input"), http.StatusBadRequest},
		{"bad request", dErrors.New(dErrors.CodeBadRequest, "Invalid JSON body"), http.StatusBadRequest},
		{"invalid transition", dErrors.New(dErrors.CodeInvalidTransition, "Status must be APPROVED or DENIED"), http.StatusBadRequest},
		{"unauthenticated", dErrors.New(dErrors.CodeUnauthenticated, "Unauthorized"), http.StatusUnauthorized},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "Update not allowed"), http.StatusForbidden},
		{"not found", dErrors.New(dErrors.CodeNotFound, "License not found"), http.StatusNotFound},
		{"conflict", dErrors.New(dErrors.CodeConflict, "duplicate"), http.StatusConflict},
		{"timeout", dErrors.New(dErrors.CodeTimeout, "transaction aborted"), http.StatusGatewayTimeout},
		{"internal", dErrors.New(dErrors.CodeInternal, "boom"), http.StatusInternalServerError},
		{"uncoded", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dErrors.ToHTTPStatus(tc.err))
		})
	}
}
