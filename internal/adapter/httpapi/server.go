// Package httpapi — HTTP-витрина: сведения о комиссии, список продуктов и
// чтение федеративных записей.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/marketplace-service/internal/adapter/fedstore"
	"github.com/example/marketplace-service/internal/apub"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/example/marketplace-service/internal/fees"
	"github.com/gorilla/mux"
)

const activityJSON = "application/activity+json"

type Server struct {
	Router *mux.Router

	store domain.Storage
	fees  fees.Calculator
	feds  fedstore.Store // nil в реляционном режиме
	base  string
	log   *slog.Logger
}

// NewServer собирает маршруты. feds может быть nil — тогда /ap/* не
// регистрируются.
func NewServer(store domain.Storage, calc fees.Calculator, feds fedstore.Store, baseURL string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Router: mux.NewRouter(),
		store:  store,
		fees:   calc,
		feds:   feds,
		base:   baseURL,
		log:    logger,
	}
	s.Router.HandleFunc("/api/fees", s.handleFees).Methods(http.MethodGet)
	s.Router.HandleFunc("/api/products", s.handleProducts).Methods(http.MethodGet)
	if feds != nil {
		s.Router.HandleFunc("/ap/u/{id}", s.handleRecord(apub.KindActor)).Methods(http.MethodGet)
		s.Router.HandleFunc("/ap/o/{id}", s.handleRecord(apub.KindObject)).Methods(http.MethodGet)
		s.Router.HandleFunc("/ap/s/{id}", s.handleRecord(apub.KindActivity)).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) handleFees(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.fees.Info())
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	products, err := s.store.GetProducts(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// handleRecord отдаёт сырую федеративную запись нужного семейства.
func (s *Server) handleRecord(kind apub.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		rec, err := s.feds.Get(r.Context(), kind, apub.ToURI(s.base, kind, id))
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", activityJSON)
		_, _ = w.Write(rec.Data)
	}
}

func filterFromQuery(r *http.Request) domain.ProductFilter {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Search:      q.Get("search"),
		Category:    q.Get("category"),
		Type:        domain.ProductType(q.Get("type")),
		DeveloperID: q.Get("developerId"),
		SortBy:      domain.SortKey(q.Get("sortBy")),
		SortOrder:   domain.SortOrder(q.Get("sortOrder")),
	}
	if v := q.Get("priceMin"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.PriceMin = &n
		}
	}
	if v := q.Get("priceMax"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.PriceMax = &n
		}
	}
	if v := q.Get("tags"); v != "" {
		f.Tags = strings.Split(v, ",")
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}
	return f
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrNotSupported):
		http.Error(w, "not supported in this storage mode", http.StatusNotImplemented)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, "invalid request", http.StatusBadRequest)
	default:
		s.log.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
