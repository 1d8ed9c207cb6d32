package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MarketID/pkg/kit"
)

type Server struct {
	Store Store
	Log   *zap.Logger
}

// Register adds the catalog endpoints to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/products", s.list)
	r.Get("/products/flash-sale", s.flashSale)
	r.Get("/products/{id}", s.get)
	r.Get("/categories", s.categories)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid featured flag", nil)
		return
	}

	products, err := s.Store.List(r.Context(), f)
	if err != nil {
		s.fault(w, r, "Error fetching products", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.fault(w, r, "Error fetching product", err, zap.String("id", id))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "Product not found", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) flashSale(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context(), Filter{})
	if err != nil {
		s.fault(w, r, "Error fetching products", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, FlashSale(products, DefaultFlashSaleMinDiscount, DefaultFlashSaleLimit))
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context(), Filter{})
	if err != nil {
		s.fault(w, r, "Error fetching categories", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, Categories(products))
}

func (s *Server) fault(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
	kit.WriteFault(w, r, msg, err)
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Filter{}, err
		}
		f.Featured = b
	}
	return f, nil
}
