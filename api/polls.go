package api

import (
	"net/http"
)

// polls lists the polls of a platform in index order
// GET /platforms/{platformId}/polls
func (a *API) polls(w http.ResponseWriter, r *http.Request) {
	id, err := platformIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := a.gateway.Ledger().ListPolls(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &Polls{Polls: list})
}

// poll returns a poll
// GET /platforms/{platformId}/polls/{pollIndex}
func (a *API) poll(w http.ResponseWriter, r *http.Request) {
	id, idx, err := pollParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := a.gateway.Ledger().Poll(id, idx)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, info)
}

// pollCounts returns the encrypted tallies of a poll
// GET /platforms/{platformId}/polls/{pollIndex}/counts
func (a *API) pollCounts(w http.ResponseWriter, r *http.Request) {
	id, idx, err := pollParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tallies, err := a.gateway.Ledger().EncryptedCounts(id, idx)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &EncryptedCounts{PlatformID: id, PollIndex: idx, Tallies: tallies})
}

// pollVoter reports whether the address voted in a poll
// GET /platforms/{platformId}/polls/{pollIndex}/voters/{address}
func (a *API) pollVoter(w http.ResponseWriter, r *http.Request) {
	id, idx, err := pollParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	addr, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	voted, err := a.gateway.Ledger().HasVoted(id, idx, addr)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &Voted{Address: addr, Voted: voted})
}
