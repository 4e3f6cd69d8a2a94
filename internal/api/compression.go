package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// decompressMiddleware inflates request bodies that declare a
// Content-Encoding. Only zstd is accepted; a missing header means the
// body is already plain.
func decompressMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := r.Header.Get("Content-Encoding")

			switch {
			case encoding == "":
				next.ServeHTTP(w, r)

			case strings.EqualFold(encoding, "zstd"):
				decoder, err := zstd.NewReader(r.Body)
				if err != nil {
					respondError(w, http.StatusBadRequest, "Failed to create zstd decoder")
					return
				}
				defer decoder.Close()

				// Hand downstream handlers a plain body of unknown length.
				r.Body = io.NopCloser(decoder)
				r.Header.Del("Content-Encoding")
				r.Header.Del("Content-Length")
				r.ContentLength = -1

				next.ServeHTTP(w, r)

			default:
				respondError(w, http.StatusUnsupportedMediaType,
					"Unsupported Content-Encoding: "+encoding)
			}
		})
	}
}
