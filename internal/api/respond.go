package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/ragutil/internal/apperr"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON request body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps an error kind to its response status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindColumnNotFound, apperr.KindSelector, apperr.KindPattern, apperr.KindInvalid, apperr.KindNoTableFound:
		return http.StatusUnprocessableEntity
	case apperr.KindNetwork, apperr.KindDecode:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail reports err to the client and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("kind", apperr.KindOf(err).String()).Msg("request failed")
	}
	jsonError(w, err.Error(), code)
}

func required(w http.ResponseWriter, field, value string) bool {
	if value == "" {
		jsonError(w, field+" is required", http.StatusBadRequest)
		return false
	}
	return true
}
