package api

import (
	"net/http"
)

// platforms lists every platform in ascending id order
// GET /platforms
func (a *API) platforms(w http.ResponseWriter, r *http.Request) {
	list, err := a.gateway.Ledger().Platforms()
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &Platforms{Platforms: list})
}

// platform returns a platform summary
// GET /platforms/{platformId}
func (a *API) platform(w http.ResponseWriter, r *http.Request) {
	id, err := platformIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := a.gateway.Ledger().Platform(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, p)
}

// member reports whether the address is a platform member
// GET /platforms/{platformId}/members/{address}
func (a *API) member(w http.ResponseWriter, r *http.Request) {
	id, err := platformIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &Membership{
		PlatformID: id,
		Address:    addr,
		Member:     a.gateway.Ledger().IsMember(id, addr),
	})
}

// memberProof returns the Merkle proof of a platform member
// GET /platforms/{platformId}/members/{address}/proof
func (a *API) memberProof(w http.ResponseWriter, r *http.Request) {
	id, err := platformIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	proof, err := a.gateway.Ledger().MembershipProof(id, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, proof)
}
