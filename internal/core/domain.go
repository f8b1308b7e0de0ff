package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Source collection tags. The values are the upstream API paths so that
// transaction keys and error messages stay recognizable to operators.
const (
	SourceExpenditures      Source = "/Expenditure/"
	SourceExpenditureIncome Source = "/Expenditure/income/"
	SourceRent              Source = "/rent/"
	SourceServices          Source = "/services/"
	SourceSalaries          Source = "/staff/salaries/"
	SourceCustomers         Source = "/api/customers/"
	SourceAgreements        Source = "/agreements/"
)

type (
	TxType string

	Source string

	// Transaction is the canonical ledger entry. It is derived during
	// aggregation and never persisted.
	Transaction struct {
		Key         string          `json:"key"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TxType          `json:"type"`
		Source      Source          `json:"sourceCollection"`
		RelatedName string          `json:"relatedEntityName"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrMissingSource = errors.New("missing source collection")
	ErrEmptyCategory = errors.New("empty category")
)

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Source == "" {
		return ErrMissingSource
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
