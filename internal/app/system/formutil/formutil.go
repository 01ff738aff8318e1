// Package formutil reads request bodies, JSON or multipart, into typed
// input structs and validates them.
//
// Example usage:
//
//	var in registerInput
//	if err := formutil.DecodeJSON(w, r, &in); err != nil {
//		h.ErrLog.Write(w, r, err)
//		return
//	}
//	if err := formutil.Check(in); err != nil {
//		h.ErrLog.Write(w, r, err)
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/inputval"
	"github.com/dalemusser/tutorhub/internal/app/system/limits"
)

// DecodeJSON reads at most limits.MaxJSONBodySize bytes of JSON into dst.
// An empty body leaves dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case isTooLarge(err):
		return apierr.BadRequest("Request body too large")
	default:
		return &apierr.Error{Kind: apierr.KindBadRequest, Message: "Invalid JSON body", Err: err}
	}
}

// IsMultipart reports whether r carries multipart/form-data.
func IsMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// ParseMultipart parses a multipart body of at most maxBytes (plus a small
// allowance for the other fields).
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+limits.MaxJSONBodySize)
	if err := r.ParseMultipartForm(limits.MultipartMemory); err != nil {
		if isTooLarge(err) {
			return apierr.BadRequest("File too large")
		}
		return &apierr.Error{Kind: apierr.KindBadRequest, Message: "Invalid multipart form", Err: err}
	}
	return nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// Values returns every value of a multipart/form field. Clients send tags
// either as repeated fields or as a single string.
func Values(r *http.Request, key string) []string {
	if r.MultipartForm != nil {
		if v, ok := r.MultipartForm.Value[key]; ok {
			return v
		}
	}
	return r.Form[key]
}

// Has reports whether the form carried key at all, even empty.
func Has(r *http.Request, key string) bool {
	if r.MultipartForm != nil {
		if _, ok := r.MultipartForm.Value[key]; ok {
			return true
		}
	}
	_, ok := r.Form[key]
	return ok
}

// Check validates v's struct tags and returns the first failure as a
// BadRequest.
func Check(v any) error {
	if res := inputval.Validate(v); res.HasErrors() {
		return apierr.BadRequest(res.First())
	}
	return nil
}
