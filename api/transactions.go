package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/log"
)

// submitTransaction executes a signed ledger transaction
// POST /transactions
func (a *API) submitTransaction(w http.ResponseWriter, r *http.Request) {
	stx := &gateway.SignedTx{}
	if err := json.NewDecoder(r.Body).Decode(stx); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	receipt, err := a.gateway.SubmitSigned(r.Context(), stx)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Infow("transaction executed", "op", receipt.Op, "caller", receipt.Caller.Hex(),
		"platformId", receipt.PlatformID, "pollIndex", receipt.PollIndex)
	httpWriteJSON(w, &TransactionResponse{
		Op:         receipt.Op,
		Caller:     receipt.Caller,
		PlatformID: receipt.PlatformID,
		PollIndex:  receipt.PollIndex,
	})
}

// accountNonce returns the next nonce of an account
// GET /accounts/{address}/nonce
func (a *API) accountNonce(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	nonce, err := a.gateway.Nonce(addr)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &NonceResponse{Address: addr, Nonce: nonce})
}
