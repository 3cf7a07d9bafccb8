//nolint:lll
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/input"
	"github.com/vocdoni/confidential-polls/ledger"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 401, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500, 503 or 504.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill in the gap, that code was used in the past
// for some error (not anymore) and shouldn't be reused.
var (
	ErrResourceNotFound = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody    = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedParam   = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}
	ErrMalformedAddress = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrInvalidArgument  = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid argument")}
	ErrForbidden        = Error{Code: 40011, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("forbidden")}
	ErrAlreadyMember    = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("already a member")}
	ErrAlreadyVoted     = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("already voted")}
	ErrAlreadyFinalized = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll already finalized")}
	ErrPlatformFull     = Error{Code: 40015, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("platform is full")}
	ErrPollFinalized    = Error{Code: 40016, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll is finalized")}
	ErrInvalidProof     = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid encrypted input proof")}
	ErrInvalidNonce     = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("invalid nonce")}
	ErrUnauthorized     = Error{Code: 40019, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("decryption unauthorized")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrNotInitialized             = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("decryption not initialized")}
	ErrDecryptionUnavailable      = Error{Code: 50004, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("decryption unavailable")}
	ErrEncryptionUnavailable      = Error{Code: 50005, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("encryption unavailable")}
	ErrTimeout                    = Error{Code: 50006, HTTPstatus: http.StatusGatewayTimeout, Err: fmt.Errorf("timeout")}
	ErrGatewayNotRunning          = Error{Code: 50007, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("gateway is not running")}
)

// sentinels maps the error kinds of the node to their API errors. The
// client uses it in reverse to rebuild the kind from a response code.
var sentinels = []struct {
	kind error
	api  Error
}{
	{ledger.ErrNotFound, ErrResourceNotFound},
	{ledger.ErrInvalidArgument, ErrInvalidArgument},
	{ledger.ErrForbidden, ErrForbidden},
	{ledger.ErrAlreadyMember, ErrAlreadyMember},
	{ledger.ErrAlreadyVoted, ErrAlreadyVoted},
	{ledger.ErrAlreadyFinalized, ErrAlreadyFinalized},
	{ledger.ErrFull, ErrPlatformFull},
	{ledger.ErrFinalized, ErrPollFinalized},
	{ledger.ErrInvalidProof, ErrInvalidProof},
	{gateway.ErrInvalidNonce, ErrInvalidNonce},
	{gateway.ErrInvalidSignature, ErrInvalidSignature},
	{gateway.ErrNotRunning, ErrGatewayNotRunning},
	{decrypt.ErrUnauthorized, ErrUnauthorized},
	{decrypt.ErrNotInitialized, ErrNotInitialized},
	{decrypt.ErrDecryptionUnavailable, ErrDecryptionUnavailable},
	{decrypt.ErrTimeout, ErrTimeout},
	{context.DeadlineExceeded, ErrTimeout},
	{input.ErrEncryptionUnavailable, ErrEncryptionUnavailable},
}
