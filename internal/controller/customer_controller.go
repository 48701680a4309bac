// internal/controller/customer_controller.go
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/customer-service/internal/errors"
	"github.com/unclebandit/customer-service/internal/model"
)

const (
	basePath = "/api/v1/customer"

	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

// CustomerStore is what the controller needs from the layer below. Single-record
// operations return (nil, nil) when the customer does not exist.
type CustomerStore interface {
	Create(ctx context.Context, c model.Customer) (*model.Customer, error)
	FindByID(ctx context.Context, id string) (*model.Customer, error)
	FindAll(ctx context.Context) iter.Seq2[*model.Customer, error]
	Update(ctx context.Context, id string, c model.Customer) (*model.Customer, error)
	Delete(ctx context.Context, id string) (*model.Customer, error)
}

type CustomerController struct {
	CustomerService CustomerStore
	Logger          *zap.Logger
}

func NewCustomerController(store CustomerStore, logger *zap.Logger) *CustomerController {
	return &CustomerController{
		CustomerService: store,
		Logger:          logger,
	}
}

// Route binds a method and chi pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (c *CustomerController) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Pattern: basePath, Handler: c.Create},
		{Method: http.MethodGet, Pattern: basePath, Handler: c.FindAll},
		{Method: http.MethodGet, Pattern: basePath + "/{id}", Handler: c.FindByID},
		{Method: http.MethodPut, Pattern: basePath + "/{id}", Handler: c.Update},
		{Method: http.MethodDelete, Pattern: basePath + "/{id}", Handler: c.Delete},
	}
}

// Register mounts every route on r.
func (c *CustomerController) Register(r chi.Router) {
	for _, route := range c.Routes() {
		r.MethodFunc(route.Method, route.Pattern, route.Handler)
	}
}

func customerID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// decodeCustomer reads exactly one customer object from the body.
func decodeCustomer(r *http.Request) (model.Customer, error) {
	var customer model.Customer

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&customer); err != nil {
		return model.Customer{}, err
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return model.Customer{}, fmt.Errorf("%w: unexpected data after the customer object", appErrors.ErrInvalidCustomer)
	}
	return customer, nil
}

// Create answers 201 with the stored customer. Any failure, including a body that
// is not a customer, answers 400 with no body.
func (c *CustomerController) Create(w http.ResponseWriter, r *http.Request) {
	customer, err := decodeCustomer(r)
	if err != nil {
		c.Logger.Debug("invalid customer body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	saved, err := c.CustomerService.Create(r.Context(), customer)
	if err != nil {
		c.Logger.Warn("create customer failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	c.writeJSON(w, http.StatusCreated, saved)
}

func (c *CustomerController) FindByID(w http.ResponseWriter, r *http.Request) {
	customer, err := c.CustomerService.FindByID(r.Context(), customerID(r))
	c.respond(w, r, customer, err)
}

func (c *CustomerController) Update(w http.ResponseWriter, r *http.Request) {
	customer, err := decodeCustomer(r)
	if err != nil {
		c.Logger.Debug("invalid customer body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	updated, err := c.CustomerService.Update(r.Context(), customerID(r), customer)
	if errors.Is(err, appErrors.ErrInvalidCustomer) {
		c.Logger.Debug("invalid customer", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c.respond(w, r, updated, err)
}

// Delete answers 200 with the removed customer.
func (c *CustomerController) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := c.CustomerService.Delete(r.Context(), customerID(r))
	c.respond(w, r, removed, err)
}

// FindAll streams customers as they are produced: a JSON array by default, or one
// object per line when the client accepts application/x-ndjson. The status line is
// committed with the first record, so a failure after that aborts the connection.
func (c *CustomerController) FindAll(w http.ResponseWriter, r *http.Request) {
	ndjson := strings.Contains(r.Header.Get("Accept"), contentTypeNDJSON)
	rc := http.NewResponseController(w)

	started := false
	start := func() {
		if ndjson {
			w.Header().Set("Content-Type", contentTypeNDJSON)
		} else {
			w.Header().Set("Content-Type", contentTypeJSON)
		}
		w.WriteHeader(http.StatusOK)
		if !ndjson {
			_, _ = w.Write([]byte("["))
		}
		started = true
	}

	for customer, err := range c.CustomerService.FindAll(r.Context()) {
		if err != nil {
			if !started {
				c.fail(w, r, err)
				return
			}
			c.Logger.Error("customer stream aborted", zap.Error(err))
			panic(http.ErrAbortHandler)
		}

		body, err := json.Marshal(customer)
		if err != nil {
			if !started {
				c.fail(w, r, err)
				return
			}
			c.Logger.Error("customer stream aborted", zap.Error(err))
			panic(http.ErrAbortHandler)
		}

		switch {
		case !started:
			start()
		case !ndjson:
			body = append([]byte(","), body...)
		}
		if ndjson {
			body = append(body, '\n')
		}

		if _, err := w.Write(body); err != nil {
			c.Logger.Debug("client went away during customer stream", zap.Error(err))
			return
		}
		_ = rc.Flush()
	}

	if !started {
		start()
	}
	if !ndjson {
		_, _ = w.Write([]byte("]"))
	}
}

// respond maps a single-record outcome: record → 200, absence → 404, failure → 500.
func (c *CustomerController) respond(w http.ResponseWriter, r *http.Request, customer *model.Customer, err error) {
	switch {
	case err != nil:
		c.fail(w, r, err)
	case customer == nil:
		w.WriteHeader(http.StatusNotFound)
	default:
		c.writeJSON(w, http.StatusOK, customer)
	}
}

// fail is the default answer for errors this layer does not translate.
func (c *CustomerController) fail(w http.ResponseWriter, r *http.Request, err error) {
	c.Logger.Error("customer request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	w.WriteHeader(http.StatusInternalServerError)
}

func (c *CustomerController) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		c.Logger.Error("encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
