package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tripboard/tripboard-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// handlerFunc is the inner part of a handler once the body has been decoded: it returns
// the success status and payload, or an error for writeAppError.
type handlerFunc func() (int, any, error)

// idempotent runs handle at most once per (subject, key, route, payload).
//
//   - Replay the stored response if the same key arrives with the same payload.
//   - Reject with 409 if the key is reused with a different payload.
//
// Requests without an Idempotency-Key header run unconditionally. Only 2xx responses
// are stored.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, route string, body any, handle handlerFunc) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.Idem == nil {
		s.respond(w, r, handle)
		return
	}
	ctx := r.Context()

	bodyHash, err := hashRequest(r.URL.Path, body)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: callerSubject(r),
		Method:  r.Method,
		Route:   route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(bodyHash),
		CreatedAt:   s.now(),
	}); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		s.writeAppError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, payload, err := handle()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b = append(b, '\n')
	if err := s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	}); err != nil {
		s.log.Warn("idempotency record not stored", zap.String("route", route), zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// respond writes the result of handle without idempotency bookkeeping.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, handle handlerFunc) {
	status, payload, err := handle()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, payload)
}

// hashRequest fingerprints the concrete path (which carries the path parameters) and
// the canonical JSON encoding of the decoded body.
func hashRequest(path string, body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString(path)
	buf.WriteByte('\n')
	buf.Write(b)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
