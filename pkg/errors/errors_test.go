package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{code: CodeValidation, status: http.StatusUnprocessableEntity},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeMissingCommandParameter, status: http.StatusNotFound},
		{code: CodeMalformedCommandParameter, status: http.StatusNotFound},
		{code: CodeUnsupportedCommand, status: http.StatusNotFound},
		{code: CodeMalformedRequestBody, status: http.StatusUnprocessableEntity},
		{code: CodePublishFailed, status: http.StatusInternalServerError, retryable: true},
		{code: CodeMissingSchemaVersion, status: http.StatusBadRequest},
		{code: CodeUnsupportedSchemaVersion, status: http.StatusBadRequest},
		{code: CodeStoreUnavailable, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeCreateFailed, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeCommandInFlight, status: http.StatusConflict, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Error() != "VALIDATION_ERROR: missing foo" {
		t.Fatalf("unexpected error string %q", base.Error())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeStoreUnavailable, cause, "get workbook").WithDetails(map[string]string{"id": "wb-1"})
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if wrapped.Details() == nil {
		t.Fatalf("expected details to be set")
	}
}

func TestAsAndCodeHelpers(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeMissingOwner, "RecordOwner attribute is required"))
	if typed := As(err); typed == nil || typed.Code() != CodeMissingOwner {
		t.Fatalf("expected As to find typed error, got %v", typed)
	}
	if !IsCode(err, CodeMissingOwner) {
		t.Fatalf("expected IsCode to match")
	}
	if IsRetryable(err) {
		t.Fatalf("missing owner must not be retryable")
	}
	if !IsRetryable(stdErrors.New("untyped")) {
		t.Fatalf("untyped errors default to internal which is retryable")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is never retryable")
	}
	if CodeOf(nil) != CodeInternal {
		t.Fatalf("expected CodeOf(nil) to be internal")
	}
}

func TestDumpExtractsDriverDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "workbooks_pkey", TableName: "workbooks"}
	dump := Dump(Wrap(CodeCreateFailed, pgErr, "create workbook"))
	if dump.Code != CodeCreateFailed || dump.PGCode != "23505" || dump.PGConstraint != "workbooks_pkey" {
		t.Fatalf("unexpected dump %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}

	azErr := &azcore.ResponseError{StatusCode: http.StatusConflict, ErrorCode: "EntityAlreadyExists"}
	fields := Dump(Wrap(CodeCreateFailed, azErr, "add entity")).Fields()
	if fields["azure_status"] != http.StatusConflict || fields["azure_error_code"] != "EntityAlreadyExists" {
		t.Fatalf("unexpected azure fields %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("empty pg fields should be omitted")
	}
}
