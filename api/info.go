package api

import (
	"net/http"

	"github.com/vocdoni/confidential-polls/decrypt"
)

// info returns the public configuration of the node
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	l := a.gateway.Ledger()
	info := &Info{
		ChainID:                a.gateway.ChainID(),
		Contract:               l.Contract(),
		FHE:                    l.FHE().Public(),
		DecryptionDurationDays: a.durationDays,
	}
	if a.relayer != nil {
		info.Domain = a.relayer.Domain()
	} else {
		info.Domain = decrypt.NewDomain(a.gateway.ChainID(), l.Contract())
	}
	httpWriteJSON(w, info)
}
