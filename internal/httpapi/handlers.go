package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cognicore/kafparse/pkg/kafparse"
	"github.com/cognicore/kafparse/pkg/kafparse/config"
	"github.com/cognicore/kafparse/pkg/kafparse/grammar"
	"github.com/cognicore/kafparse/pkg/kafparse/heads"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
)

// Model describes one language profile in the /models listing.
type Model struct {
	Language string   `json:"language"`
	Model    string   `json:"model"`
	Heads    []string `json:"heads"`
}

// Models lists the built-in language profiles; the first head policy of
// each is the language default.
func Models() []Model {
	var out []Model
	for _, l := range grammar.Languages() {
		m := Model{Language: l.Code, Model: l.Model}
		for _, p := range heads.Offered(l.Code) {
			m.Heads = append(m.Heads, string(p))
		}
		out = append(out, m)
	}
	return out
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Models())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"entries": stats.Entries,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	})
}

// handleParse annotates the posted KAF document. Configuration errors are
// 400, unreadable documents 422 and aborted runs 500.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	cfg, err := requestConfig(s.base, r.URL.Query())
	if err != nil {
		s.fail(w, err)
		return
	}

	var out bytes.Buffer
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	res, err := kafparse.Process(r.Context(), cfg, body, &out, kafparse.Options{
		Registry: s.registry,
		Cache:    s.cache,
		Logger:   s.log,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	h := w.Header()
	if cfg.KAF {
		h.Set("Content-Type", "application/xml; charset=utf-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}
	h.Set("X-Run-ID", res.RunID)
	h.Set("X-Sentences", strconv.Itoa(res.Sentences))
	h.Set("X-Skipped-Sentences", strconv.Itoa(len(res.Skipped)))
	for _, msg := range res.Warnings {
		h.Add("X-Warning", msg)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

// requestConfig applies the query parameters to base.
func requestConfig(base config.Config, q url.Values) (config.Config, error) {
	cfg := base
	if v := q.Get("lang"); v != "" {
		cfg.Language = v
	}
	if v := q.Get("model"); v != "" {
		cfg.Model = v
	}
	if v := q.Get("format"); v != "" {
		cfg.Format = v
	}
	if v := q.Get("heads"); v != "" {
		cfg.MarkHeads = true
		cfg.HeadPolicy = v
		if v == "default" {
			cfg.HeadPolicy = ""
		}
	}
	for name, dst := range map[string]*bool{"kaf": &cfg.KAF, "fail_fast": &cfg.FailFast} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q is not a boolean", internalerr.ErrInvalidConfig, name, v)
		}
		*dst = b
	}
	if cfg.KAF && q.Get("format") == "" {
		cfg.Format = config.Default().Format
	}
	return cfg, cfg.Validate()
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Errorf("parse: %v", err)
	} else {
		s.log.Warningf("parse: %v", err)
	}
	jsonError(w, err.Error(), code)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, internalerr.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
