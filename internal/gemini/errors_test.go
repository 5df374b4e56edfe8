package gemini

import (
	"errors"
	"strings"
	"testing"

	"github.com/oukeidos/boardtrans/internal/apperrors"
	"google.golang.org/api/googleapi"
)

func TestClassifyGeminiError_CodeMapping(t *testing.T) {
	cases := []struct {
		code     int
		kind     apperrors.Kind
		capacity bool
	}{
		{code: 400, kind: apperrors.KindBadRequest},
		{code: 401, kind: apperrors.KindAuth},
		{code: 403, kind: apperrors.KindAuth},
		{code: 404, kind: apperrors.KindBadRequest},
		{code: 429, kind: apperrors.KindRateLimit, capacity: true},
		{code: 500, kind: apperrors.KindTransient},
		{code: 503, kind: apperrors.KindOverloaded, capacity: true},
		{code: 504, kind: apperrors.KindTransient},
	}
	for _, tc := range cases {
		err := classifyGeminiError(&googleapi.Error{Code: tc.code})
		assertErrorKind(t, err, tc.kind)
		if apperrors.IsCapacity(err) != tc.capacity {
			t.Fatalf("code %d: IsCapacity=%v, want %v", tc.code, apperrors.IsCapacity(err), tc.capacity)
		}
	}
}

func TestClassifyGeminiError_WrappedAPIError(t *testing.T) {
	err := classifyGeminiError(errors.Join(errors.New("rpc"), &googleapi.Error{Code: 429}))
	assertErrorKind(t, err, apperrors.KindRateLimit)
}

func TestClassifyGeminiError_Unknown(t *testing.T) {
	err := classifyGeminiError(errors.New("boom"))
	assertErrorKind(t, err, apperrors.KindTransient)
	if apperrors.IsCapacity(err) {
		t.Fatalf("expected network errors not to count as capacity errors")
	}
}

func TestClassifyGeminiError_DoesNotExposeRawMessage(t *testing.T) {
	err := classifyGeminiError(errors.New("SECRET_BOARD_RESOLUTION"))
	if strings.Contains(err.Error(), "SECRET_BOARD_RESOLUTION") {
		t.Fatalf("expected safe message, got %q", err.Error())
	}
}

func TestClassifyGeminiError_Nil(t *testing.T) {
	if classifyGeminiError(nil) != nil {
		t.Fatalf("expected nil")
	}
}

func assertErrorKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected apperrors.Error, got %T", err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, appErr.Kind)
	}
}
