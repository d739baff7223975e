/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DECIMALS:
  Quantities and money are strings in responses ("12.50") so clients never
  round through floating point. Requests accept either a JSON string or a
  JSON number; shopspring/decimal parses both.

TIMESTAMPS:
  Transaction timestamps are ISO-8601 with microseconds. Command requests
  may carry "timestamp" (RFC 3339) to backdate an entry; omitted means now.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/commands.go: The commands requests are converted to
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stockbook/ledger"
)

// =============================================================================
// CATALOG
// =============================================================================

type ProductDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SellPrice string `json:"sell_price"`
	IsActive  bool   `json:"is_active"`
}

// CreateProductRequest adds a product. IsActive defaults to true.
type CreateProductRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SellPrice decimal.Decimal `json:"sell_price"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

// UpdateProductRequest replaces only the fields present.
type UpdateProductRequest struct {
	Name      *string          `json:"name,omitempty"`
	SellPrice *decimal.Decimal `json:"sell_price,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

type SalesmanDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type CreateSalesmanRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type UpdateSalesmanRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents one ledger row.
type TransactionDTO struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	Type           string `json:"type"`
	ProductID      string `json:"product_id,omitempty"`
	SalesmanID     string `json:"salesman_id,omitempty"`
	PaymentType    string `json:"payment_type,omitempty"`
	QuantityChange string `json:"quantity_change"`
	TotalRevenue   string `json:"total_revenue"`
	TotalCost      string `json:"total_cost"`
	LinkedID       string `json:"linked_transaction_id,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type SaleRequest struct {
	ProductID    string          `json:"product_id"`
	SalesmanID   string          `json:"salesman_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	PaymentType  string          `json:"payment_type"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// RestockRequest carries the purchase cost as a positive amount.
type RestockRequest struct {
	ProductID  string          `json:"product_id"`
	SalesmanID string          `json:"salesman_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Timestamp  *time.Time      `json:"timestamp,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

type WriteOffRequest struct {
	ProductID  string          `json:"product_id"`
	SalesmanID string          `json:"salesman_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Timestamp  *time.Time      `json:"timestamp,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

type CreditPaymentRequest struct {
	LinkedID     string          `json:"linked_transaction_id"`
	SalesmanID   string          `json:"salesman_id,omitempty"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

type OpenStockRequest struct {
	ProductID    string          `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// CommandRequest wraps one of the command bodies above. Kind uses the
// same names as the POST routes: sale, restock, write-off,
// credit-payment, open-stock.
type CommandRequest struct {
	Kind    string          `json:"kind"`
	Command json.RawMessage `json:"command"`
}

// VoidRequest reverses the transaction named in the URL and optionally
// records a corrected replacement.
type VoidRequest struct {
	Notes       string          `json:"notes,omitempty"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
	Replacement *CommandRequest `json:"replacement,omitempty"`
}

// VoidResponse is returned for voids. When the replacement was rejected
// Reversal is still set (it was committed) and Error explains the failure.
type VoidResponse struct {
	Reversal    TransactionDTO  `json:"reversal"`
	Replacement *TransactionDTO `json:"replacement,omitempty"`
	Error       *ErrorResponse  `json:"error,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

type StockDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  string `json:"quantity"`
}

type ProfitDTO struct {
	TotalRevenue string `json:"total_revenue"`
	TotalCost    string `json:"total_cost"`
	Profit       string `json:"profit"`
}

type DebtDTO struct {
	SaleID      string `json:"sale_id"`
	ProductID   string `json:"product_id"`
	SalesmanID  string `json:"salesman_id,omitempty"`
	Timestamp   string `json:"timestamp"`
	Principal   string `json:"principal"`
	Paid        string `json:"paid"`
	Outstanding string `json:"outstanding"`
}

// InfoDTO describes the running book.
type InfoDTO struct {
	LoungeName      string `json:"lounge_name"`
	SchemaVersion   string `json:"schema_version"`
	DefaultSalesman string `json:"default_salesman,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		SellPrice: ledger.Money(p.SellPrice),
		IsActive:  p.IsActive,
	}
}

func toSalesmanDTO(s ledger.Salesman) SalesmanDTO {
	return SalesmanDTO{ID: s.ID, Name: s.Name, IsActive: s.IsActive}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             tx.ID,
		Timestamp:      tx.TimestampISO(),
		Type:           string(tx.Type),
		ProductID:      tx.ProductID,
		SalesmanID:     tx.SalesmanID,
		PaymentType:    string(tx.PaymentType),
		QuantityChange: tx.QuantityChange.String(),
		TotalRevenue:   ledger.Money(tx.TotalRevenue),
		TotalCost:      ledger.Money(tx.TotalCost),
		LinkedID:       tx.LinkedID,
		Notes:          tx.Notes,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toDebtDTO(d ledger.Debt) DebtDTO {
	return DebtDTO{
		SaleID:      d.SaleID,
		ProductID:   d.ProductID,
		SalesmanID:  d.SalesmanID,
		Timestamp:   d.Timestamp.UTC().Format(ledger.TimestampFormat),
		Principal:   ledger.Money(d.Principal),
		Paid:        ledger.Money(d.Paid),
		Outstanding: ledger.Money(d.Outstanding),
	}
}

// =============================================================================
// REQUEST -> COMMAND
// =============================================================================

func (req SaleRequest) command() (ledger.Command, error) {
	pt, err := ledger.ParsePaymentType(req.PaymentType)
	if err != nil {
		return nil, err
	}
	return ledger.SaleCommand{
		ProductID:    req.ProductID,
		SalesmanID:   req.SalesmanID,
		Quantity:     req.Quantity,
		TotalRevenue: req.TotalRevenue,
		PaymentType:  pt,
		Timestamp:    req.Timestamp,
		Notes:        req.Notes,
	}, nil
}

func (req RestockRequest) command() (ledger.Command, error) {
	return ledger.RestockCommand{
		ProductID:  req.ProductID,
		SalesmanID: req.SalesmanID,
		Quantity:   req.Quantity,
		TotalCost:  req.TotalCost,
		Timestamp:  req.Timestamp,
		Notes:      req.Notes,
	}, nil
}

func (req WriteOffRequest) command() (ledger.Command, error) {
	return ledger.WriteOffCommand{
		ProductID:  req.ProductID,
		SalesmanID: req.SalesmanID,
		Quantity:   req.Quantity,
		Timestamp:  req.Timestamp,
		Notes:      req.Notes,
	}, nil
}

func (req CreditPaymentRequest) command() (ledger.Command, error) {
	return ledger.CreditPaymentCommand{
		LinkedID:     req.LinkedID,
		SalesmanID:   req.SalesmanID,
		TotalRevenue: req.TotalRevenue,
		Timestamp:    req.Timestamp,
		Notes:        req.Notes,
	}, nil
}

func (req OpenStockRequest) command() (ledger.Command, error) {
	return ledger.OpenStockCommand{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		TotalRevenue: req.TotalRevenue,
		Timestamp:    req.Timestamp,
		Notes:        req.Notes,
	}, nil
}
