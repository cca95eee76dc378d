// Package resttest runs in-memory versions of the collaborator services for tests.
package resttest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Route names used with Fail and Calls
const (
	ListInventory  = "GET /Inventory"
	GetInventory   = "GET /Inventory/{id}"
	PutInventory   = "PUT /Inventory/{id}"
	AddPayment     = "POST /CartPayment/payment/add"
	ListPayments   = "GET /CartPayment/payments/{userId}"
	ListDeliveries = "GET /api/deliveries"
	AddDelivery    = "POST /api/deliveries"
	ListComments   = "GET /CommentsRatings/comments/{itemId}"
	AddComment     = "POST /CommentsRatings/comments"
	DeleteComment  = "DELETE /CommentsRatings/comments/{id}"
	ListRatings    = "GET /CommentsRatings/ratings/{itemId}"
	AddRating      = "POST /CommentsRatings/ratings"
	DeleteRating   = "DELETE /CommentsRatings/ratings/{id}"
)

// Server fakes the inventory, payment, delivery and reviews services on one listener.
// Created records get sequential numeric ids.
type Server struct {
	*httptest.Server

	// Token, when set, must be sent as a bearer token on every request
	Token string

	mu          sync.Mutex
	products    map[int64]json.RawMessage
	payments    []map[string]any
	deliveries  []map[string]any
	comments    []map[string]any
	ratings     []map[string]any
	nextID      int64
	fail        map[string]int
	failProduct map[int64]int
	calls       map[string]int
	puts        []int64
}

func NewServer() *Server {
	s := &Server{
		products:    map[int64]json.RawMessage{},
		fail:        map[string]int{},
		failProduct: map[int64]int{},
		calls:       map[string]int{},
	}

	r := chi.NewRouter()
	s.route(r, ListInventory, s.listInventory)
	s.route(r, GetInventory, s.getInventory)
	s.route(r, PutInventory, s.putInventory)
	s.route(r, AddPayment, s.addPayment)
	s.route(r, ListPayments, s.listPayments)
	s.route(r, ListDeliveries, s.listDeliveries)
	s.route(r, AddDelivery, s.addDelivery)
	s.route(r, ListComments, s.listReviews(&s.comments))
	s.route(r, AddComment, s.addReview(&s.comments))
	s.route(r, DeleteComment, s.deleteReview(&s.comments))
	s.route(r, ListRatings, s.listReviews(&s.ratings))
	s.route(r, AddRating, s.addReview(&s.ratings))
	s.route(r, DeleteRating, s.deleteReview(&s.ratings))

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) route(r chi.Router, name string, h http.HandlerFunc) {
	method, pattern, _ := strings.Cut(name, " ")
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		status := s.fail[name]
		token := s.Token
		s.mu.Unlock()

		if token != "" && req.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if status != 0 {
			http.Error(w, "injected failure", status)
			return
		}
		h(w, req)
	}))
}

// Fail makes every call to route answer with status. A zero status clears it.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, route)
		return
	}
	s.fail[route] = status
}

// FailProduct makes PUT /Inventory/{id} fail with status for one product only
func (s *Server) FailProduct(id int64, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProduct[id] = status
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// AddProduct stores a raw inventory record under id
func (s *Server) AddProduct(id int64, record string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = json.RawMessage(record)
}

// Product returns the stored record for id
func (s *Server) Product(id int64) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.products[id]
	return rec, ok
}

// Puts lists the product ids that were successfully replaced, in order
func (s *Server) Puts() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.puts...)
}

// Payments returns every stored payment as decoded JSON
func (s *Server) Payments() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.payments...)
}

func (s *Server) Deliveries() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.deliveries...)
}

// SeedDelivery stores a delivery as-is, keeping any id it carries
func (s *Server) SeedDelivery(d map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := d["id"]; !ok {
		s.nextID++
		d["id"] = s.nextID
	}
	s.deliveries = append(s.deliveries, d)
}

func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.products[id])
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getInventory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	rec, ok := s.Product(id)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) putInventory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if status := s.failProduct[id]; status != 0 {
		http.Error(w, "injected failure", status)
		return
	}
	if _, ok := s.products[id]; !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.products[id] = body
	s.puts = append(s.puts, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addPayment(w http.ResponseWriter, r *http.Request) {
	s.create(w, r, &s.payments)
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	s.mu.Lock()
	out := make([]map[string]any, 0)
	for _, p := range s.payments {
		if toString(p["userId"]) == userID {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listDeliveries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Deliveries())
}

func (s *Server) addDelivery(w http.ResponseWriter, r *http.Request) {
	s.create(w, r, &s.deliveries)
}

func (s *Server) listReviews(list *[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		s.mu.Lock()
		out := make([]map[string]any, 0)
		for _, c := range *list {
			if toString(c["itemId"]) == itemID {
				out = append(out, c)
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) addReview(list *[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.create(w, r, list)
	}
}

func (s *Server) deleteReview(list *[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range *list {
			if toString(c["id"]) == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// create stores the decoded body with a fresh id, replacing any id the client proposed
func (s *Server) create(w http.ResponseWriter, r *http.Request, list *[]map[string]any) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.nextID++
	body["id"] = s.nextID
	*list = append(*list, body)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
