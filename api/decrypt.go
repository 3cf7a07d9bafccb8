package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/confidential-polls/decrypt"
)

// userDecrypt serves a relayer user decryption request. The plaintexts are
// sealed to the ephemeral key of the request.
// POST /decrypt
func (a *API) userDecrypt(w http.ResponseWriter, r *http.Request) {
	if a.relayer == nil {
		ErrNotInitialized.With("no relayer configured").Write(w)
		return
	}
	req := &decrypt.UserDecryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	resp, err := a.relayer.UserDecrypt(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, resp)
}
