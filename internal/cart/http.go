package cart

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"MarketID/internal/catalog"
	"MarketID/internal/session"
	"MarketID/pkg/kit"
)

const (
	maxBody = 1 << 20

	CheckoutMessage = "Checkout successful! Order placement simulated."
)

type Server struct {
	Store   Store
	Catalog catalog.Store
	Log     *zap.Logger
	Metrics *Metrics
}

// Confirmation is the mock checkout receipt.
type Confirmation struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

// Register adds the cart endpoints to r. Requests must already carry a
// session (see session.Middleware).
func (s *Server) Register(r chi.Router) {
	r.Get("/cart", s.get)
	r.Post("/cart", s.add)
	r.Put("/cart/{id}", s.setQuantity)
	r.Delete("/cart/{id}", s.remove)
}

func (s *Server) CheckoutHandler() http.HandlerFunc { return s.checkout }

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return
	}

	c, err := s.Store.Get(r.Context(), sid)
	if err != nil {
		s.fault(w, r, "Error fetching cart", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var body catalog.Product
	if err := decodeJSON(w, r, &body, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	id := strings.TrimSpace(body.ID)
	if id == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "product id required", nil)
		return
	}

	// The catalog record wins over whatever the client sent, so prices
	// cannot be set from outside.
	p, found, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		s.fault(w, r, "Error adding to cart", err)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "Product not found", nil)
		return
	}

	s.mutate(w, r, Add{Product: p}, "Error adding to cart")
}

func (s *Server) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := decodeJSON(w, r, &req, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.Quantity == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "quantity required", nil)
		return
	}

	s.mutate(w, r, SetQuantity{ID: chi.URLParam(r, "id"), Quantity: *req.Quantity}, "Error updating quantity")
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, Remove{ID: chi.URLParam(r, "id")}, "Error removing from cart")
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return
	}

	before, err := s.Store.Take(r.Context(), sid)
	if err != nil {
		s.fault(w, r, "Error during checkout", err)
		return
	}
	s.Metrics.checkout(before)

	conf := Confirmation{Message: CheckoutMessage, OrderID: NewOrderID()}
	if s.Log != nil {
		s.Log.Info("checkout",
			zap.String("order_id", conf.OrderID),
			zap.Int("items", before.TotalItems()),
			zap.String("total", before.TotalPrice().String()),
		)
	}
	kit.WriteJSON(w, http.StatusOK, conf)
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op Op, failMsg string) {
	sid, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return
	}

	c, err := s.Store.Update(r.Context(), sid, op)
	if err != nil {
		s.Metrics.op(op.Name(), "error")
		s.fault(w, r, failMsg, err)
		return
	}
	s.Metrics.op(op.Name(), "ok")
	kit.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) fault(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if s.Log != nil {
		s.Log.Error(msg, zap.Error(err))
	}
	kit.WriteFault(w, r, msg, err)
}

// NewOrderID returns a short upper-case reference for a mock order.
func NewOrderID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
