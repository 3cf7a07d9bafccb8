package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/vocdoni/confidential-polls/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// platformIDParam parses the platform id URL parameter.
func platformIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, PlatformURLParam), 10, 64)
	if err != nil {
		return 0, ErrMalformedParam.Withf("platform id: %v", err)
	}
	return id, nil
}

// pollParams parses the platform id and poll index URL parameters.
func pollParams(r *http.Request) (uint64, uint32, error) {
	id, err := platformIDParam(r)
	if err != nil {
		return 0, 0, err
	}
	idx, err := strconv.ParseUint(chi.URLParam(r, PollURLParam), 10, 32)
	if err != nil {
		return 0, 0, ErrMalformedParam.Withf("poll index: %v", err)
	}
	return id, uint32(idx), nil
}

// addressParam parses the address URL parameter.
func addressParam(r *http.Request) (common.Address, error) {
	s := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrMalformedAddress.With(fmt.Sprintf("%q", s))
	}
	return common.HexToAddress(s), nil
}

// writeError writes err, converting it to an API error if needed.
func writeError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(Error); ok {
		apiErr.Write(w)
		return
	}
	ErrorFor(err).Write(w)
}
