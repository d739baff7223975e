/*
handlers.go - HTTP API handlers for the stock and sales ledger

PURPOSE:
  Exposes the ledger rule engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to ledger.Runtime.

ENDPOINTS:
  Catalog:
    GET    /api/products                 List products (?include_inactive=true)
    POST   /api/products                 Add product
    GET    /api/products/{id}            Get product
    PATCH  /api/products/{id}            Rename / reprice / (de)activate
    GET    /api/salesmen ...             Same shape as products

  Ledger:
    GET    /api/transactions             Full ledger (?type=SALE&product_id=P1)
    GET    /api/transactions/{id}        One row
    POST   /api/transactions/sales       Record a sale
    POST   /api/transactions/restocks    Record a restock
    POST   /api/transactions/write-offs  Record a write-off
    POST   /api/transactions/credit-payments
    POST   /api/transactions/open-stock
    POST   /api/transactions/{id}/void   Reverse, optionally with replacement

  Reports:
    GET    /api/reports/stock
    GET    /api/reports/profit
    GET    /api/reports/debts

ARCHITECTURE:
  Handler owns one ledger.Runtime. A Runtime (and its cache) is a
  single-session object, so every handler holds h.mu for the whole
  request; requests are processed one at a time.

ERROR HANDLING:
  Errors are returned as JSON with the ledger error kind in "code":
  - 400: invalid_value (bad numbers, missing fields, malformed JSON)
  - 404: missing_reference (unknown product, salesman or transaction)
  - 409: business_rule_violation (inactive entities, bad links, voids)
  - 500: anything else (store failures)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/stockbook/ledger"
	"github.com/warp/stockbook/logging"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Command kinds, shared by the POST routes and void replacements.
const (
	KindSale          = "sale"
	KindRestock       = "restock"
	KindWriteOff      = "write-off"
	KindCreditPayment = "credit-payment"
	KindOpenStock     = "open-stock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	mu   sync.Mutex
	rt   *ledger.Runtime
	info InfoDTO

	// Track the demo scenario loaded into this book, if any
	currentScenario string
}

// NewHandler creates a handler serving rt.
func NewHandler(rt *ledger.Runtime, loungeName, schemaVersion string) *Handler {
	return &Handler{
		rt: rt,
		info: InfoDTO{
			LoungeName:      loungeName,
			SchemaVersion:   schemaVersion,
			DefaultSalesman: rt.DefaultSalesman(),
		},
	}
}

// Info describes the book being served.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	products, err := h.rt.ListProducts(r.Context(), includeInactive(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.rt.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.rt.AddProduct(r.Context(), ledger.Product{
		ID:        req.ID,
		Name:      req.Name,
		SellPrice: req.SellPrice,
		IsActive:  req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.rt.UpdateProduct(r.Context(), chi.URLParam(r, "id"), ledger.ProductUpdate{
		Name:      req.Name,
		SellPrice: req.SellPrice,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// =============================================================================
// SALESMAN HANDLERS
// =============================================================================

func (h *Handler) ListSalesmen(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	salesmen, err := h.rt.ListSalesmen(r.Context(), includeInactive(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	dtos := make([]SalesmanDTO, len(salesmen))
	for i, s := range salesmen {
		dtos[i] = toSalesmanDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetSalesman(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.rt.GetSalesman(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesmanDTO(s))
}

func (h *Handler) CreateSalesman(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesmanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.rt.AddSalesman(r.Context(), ledger.Salesman{
		ID:       req.ID,
		Name:     req.Name,
		IsActive: req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSalesmanDTO(s))
}

func (h *Handler) UpdateSalesman(w http.ResponseWriter, r *http.Request) {
	var req UpdateSalesmanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.rt.UpdateSalesman(r.Context(), chi.URLParam(r, "id"), ledger.SalesmanUpdate{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesmanDTO(s))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns the ledger in insertion order, optionally
// filtered by type and product.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	txs, err := h.rt.ListTransactions(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	typ := ledger.TransactionType(r.URL.Query().Get("type"))
	productID := r.URL.Query().Get("product_id")
	filtered := txs[:0]
	for _, tx := range txs {
		if typ != "" && tx.Type != typ {
			continue
		}
		if productID != "" && tx.ProductID != productID {
			continue
		}
		filtered = append(filtered, tx)
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(filtered))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.rt.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// RecordCommand returns the handler for one command kind.
func (h *Handler) RecordCommand(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read request body", err)
			return
		}
		cmd, err := decodeCommand(kind, raw)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		tx, err := h.rt.Record(r.Context(), cmd)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
	}
}

// VoidTransaction reverses {id}. A rejected replacement is reported with
// the replacement's status code and the committed reversal in the body.
func (h *Handler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	var req VoidRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cmd := ledger.VoidCommand{
		LinkedID:  chi.URLParam(r, "id"),
		Timestamp: req.Timestamp,
		Notes:     req.Notes,
	}
	if req.Replacement != nil {
		replacement, err := decodeCommand(req.Replacement.Kind, req.Replacement.Command)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}
		cmd.Replacement = replacement
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	txs, err := h.rt.RecordVoid(r.Context(), cmd)
	var replErr *ledger.ReplacementError
	if errors.As(err, &replErr) {
		writeJSON(w, statusFor(replErr.Err), VoidResponse{
			Reversal: toTransactionDTO(replErr.Reversal),
			Error:    errorResponse(replErr.Err),
		})
		return
	}
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	resp := VoidResponse{Reversal: toTransactionDTO(txs[0])}
	if len(txs) > 1 {
		replacement := toTransactionDTO(txs[1])
		resp.Replacement = &replacement
	}
	writeJSON(w, http.StatusCreated, resp)
}

// decodeCommand parses a command body of the given kind.
func decodeCommand(kind string, raw json.RawMessage) (ledger.Command, error) {
	var req interface {
		command() (ledger.Command, error)
	}
	switch kind {
	case KindSale:
		req = &SaleRequest{}
	case KindRestock:
		req = &RestockRequest{}
	case KindWriteOff:
		req = &WriteOffRequest{}
	case KindCreditPayment:
		req = &CreditPaymentRequest{}
	case KindOpenStock:
		req = &OpenStockRequest{}
	default:
		return nil, &ledger.Error{Kind: ledger.KindInvalidValue, Op: "decode command", Msg: fmt.Sprintf("unknown command kind %q", kind)}
	}
	if len(raw) == 0 {
		return nil, &ledger.Error{Kind: ledger.KindInvalidValue, Op: "decode command", Msg: "empty command body"}
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return nil, &ledger.Error{Kind: ledger.KindInvalidValue, Op: "decode command", Msg: err.Error()}
	}
	return req.command()
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// StockReport lists the stock of every product that has moved, with its
// catalog name.
func (h *Handler) StockReport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	inv, err := h.rt.Inventory(ctx)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	products, err := h.rt.ListProducts(ctx, true)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	dtos := make([]StockDTO, len(inv))
	for i, l := range inv {
		dtos[i] = StockDTO{ProductID: l.ProductID, Name: names[l.ProductID], Quantity: l.Quantity.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ProfitReport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.rt.ProfitSummary(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfitDTO{
		TotalRevenue: ledger.Money(s.TotalRevenue),
		TotalCost:    ledger.Money(s.TotalCost),
		Profit:       ledger.Money(s.Profit),
	})
}

func (h *Handler) DebtsReport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	debts, err := h.rt.OutstandingDebts(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	dtos := make([]DebtDTO, len(debts))
	for i, d := range debts {
		dtos[i] = toDebtDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps a ledger error kind to an HTTP status.
func statusFor(err error) int {
	switch ledger.KindOf(err) {
	case ledger.KindMissingReference:
		return http.StatusNotFound
	case ledger.KindBusinessRule:
		return http.StatusConflict
	case ledger.KindInvalidValue:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorResponse(err error) *ErrorResponse {
	kind := ledger.KindOf(err)
	if kind == ledger.KindUnknown {
		return &ErrorResponse{Error: "Internal server error"}
	}
	return &ErrorResponse{Error: err.Error(), Code: kind.String()}
}

// writeLedgerError writes err with the status of its kind. Errors without
// a kind are logged and hidden from the client.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log := logging.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    ledger.KindInvalidValue.String(),
			Details: err.Error(),
		})
		return false
	}
	return true
}

func includeInactive(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	return v
}
