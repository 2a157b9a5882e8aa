package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ItemCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

type Server struct {
	Store Store
	Stats *StatsCache
	Log   *zap.Logger

	// WriteLimiter throttles POST /items per client IP when set.
	WriteLimiter *kit.IPRateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Get("/items", s.list)
	r.Get("/items/{id}", s.get)
	if s.WriteLimiter != nil {
		r.With(s.WriteLimiter.Middleware).Post("/items", s.create)
	} else {
		r.Post("/items", s.create)
	}
	r.Get("/stats", s.stats)

	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ReadAll(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "list items failed", err)
		return
	}

	q := r.URL.Query()
	page, limit := ParsePageParams(q.Get("page"), q.Get("limit"))

	kit.WriteJSON(w, http.StatusOK, Paginate(Search(items, q.Get("q")), page, limit))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": raw})
		return
	}

	it, ok, err := s.Store.FindByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, "get item failed", err)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": raw})
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

type createReq struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category" validate:"required"`
	Price    *float64 `json:"price" validate:"required"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateRequest(w, r)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			kit.WriteError(w, r, http.StatusBadRequest, "validation failed", ve.Fields)
			return
		}
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	it, err := s.Store.Append(r.Context(), NewItem{
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Price:    *req.Price,
	})
	if err != nil {
		s.writeStoreError(w, r, "append item failed", err)
		return
	}

	s.logger().Info("item created", zap.Int64("id", it.ID), zap.String("category", it.Category))
	kit.WriteJSON(w, http.StatusCreated, it)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Stats.Get(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "stats failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, st)
}

func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (createReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req createReq
	if err := dec.Decode(&req); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return createReq{}, &ValidationError{Fields: map[string]string{te.Field: "must be a " + jsonKind(te.Type.Kind().String())}}
		}
		return createReq{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return createReq{}, errors.New("extra data after json object")
	}

	// Whitespace-only strings count as missing.
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if err := validate.Struct(req); err != nil {
		var fe validator.ValidationErrors
		if errors.As(err, &fe) {
			fields := make(map[string]string, len(fe))
			for _, f := range fe {
				fields[strings.ToLower(f.Field())] = f.Tag()
			}
			return createReq{}, &ValidationError{Fields: fields}
		}
		return createReq{}, err
	}
	return req, nil
}

func jsonKind(goKind string) string {
	switch goKind {
	case "float64", "float32", "int", "int64":
		return "number"
	default:
		return goKind
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		var ve *ValidationError
		if errors.As(err, &ve) {
			kit.WriteError(w, r, http.StatusBadRequest, "validation failed", ve.Fields)
			return
		}
		kit.WriteError(w, r, http.StatusBadRequest, "validation failed", nil)
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
	default:
		s.logger().Error(msg, zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
