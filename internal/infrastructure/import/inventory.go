package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/marketplace"
)

// Accepted spellings of the stock column
var quantityHeaders = []string{"quantity", "qty", "stock", "available"}

const maxSKULength = 64

// InventorySheet is the outcome of reading a stock sheet. Updates holds
// only the rows that passed validation.
type InventorySheet struct {
	Updates    []marketplace.InventoryUpdate
	Errors     []RowError
	ErrorCount int
	Rows       int
}

// Valid reports whether every data row was accepted
func (s *InventorySheet) Valid() bool {
	return s.ErrorCount == 0
}

// ParseInventory reads a sheet with a sku column and a quantity column.
// Blank rows are skipped. A file with more than maxRows data rows is
// rejected as a whole.
func ParseInventory(r io.Reader, maxRows int, opts ...ParserOption) (*InventorySheet, error) {
	p, err := NewCSVParser(r, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := p.MissingHeaders("sku"); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column %q", ErrMissingHeader, missing[0])
	}
	qtyColumn := ""
	for _, h := range quantityHeaders {
		if len(p.MissingHeaders(h)) == 0 {
			qtyColumn = h
			break
		}
	}
	if qtyColumn == "" {
		return nil, fmt.Errorf("%w: missing column %q", ErrMissingHeader, "quantity")
	}

	sheet := &InventorySheet{}
	errs := NewErrorCollection(100)
	seen := make(map[string]int)

	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs.Add(RowError{Row: p.currentRow, Code: ErrCodeMalformedRow, Message: err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		sheet.Rows++
		if maxRows > 0 && sheet.Rows > maxRows {
			return nil, fmt.Errorf("%w of %d", ErrTooManyRows, maxRows)
		}

		update, rowErr := inventoryRow(row, qtyColumn)
		if rowErr != nil {
			errs.Add(*rowErr)
			continue
		}
		key := strings.ToUpper(update.SKU)
		if first, dup := seen[key]; dup {
			errs.Add(RowError{
				Row:     row.LineNumber,
				Column:  "sku",
				Code:    ErrCodeDuplicate,
				Message: fmt.Sprintf("SKU already listed on row %d", first),
				Value:   update.SKU,
			})
			continue
		}
		seen[key] = row.LineNumber
		sheet.Updates = append(sheet.Updates, update)
	}

	if sheet.Rows == 0 && !errs.HasErrors() {
		return nil, ErrNoDataRows
	}
	sheet.Errors = errs.Errors()
	sheet.ErrorCount = errs.TotalCount()
	return sheet, nil
}

func inventoryRow(row *Row, qtyColumn string) (marketplace.InventoryUpdate, *RowError) {
	sku := row.Get("sku")
	if sku == "" {
		return marketplace.InventoryUpdate{}, &RowError{
			Row: row.LineNumber, Column: "sku", Code: ErrCodeRequiredField, Message: "SKU is required",
		}
	}
	if len(sku) > maxSKULength {
		return marketplace.InventoryUpdate{}, &RowError{
			Row: row.LineNumber, Column: "sku", Code: ErrCodeInvalidRange,
			Message: fmt.Sprintf("SKU longer than %d characters", maxSKULength), Value: sku,
		}
	}

	raw := row.Get(qtyColumn)
	if raw == "" {
		return marketplace.InventoryUpdate{}, &RowError{
			Row: row.LineNumber, Column: qtyColumn, Code: ErrCodeRequiredField, Message: "quantity is required",
		}
	}
	// Spreadsheets often write whole numbers as "12.00"
	qty, err := decimal.NewFromString(strings.ReplaceAll(raw, " ", ""))
	if err != nil || !qty.IsInteger() {
		return marketplace.InventoryUpdate{}, &RowError{
			Row: row.LineNumber, Column: qtyColumn, Code: ErrCodeInvalidType,
			Message: "quantity must be a whole number", Value: raw,
		}
	}
	if qty.IsNegative() {
		return marketplace.InventoryUpdate{}, &RowError{
			Row: row.LineNumber, Column: qtyColumn, Code: ErrCodeInvalidRange,
			Message: "quantity cannot be negative", Value: raw,
		}
	}

	update := marketplace.InventoryUpdate{SKU: sku, Quantity: int(qty.IntPart())}
	if err := update.Validate(); err != nil {
		return marketplace.InventoryUpdate{}, &RowError{
			Row: row.LineNumber, Code: ErrCodeInvalidRange, Message: err.Error(),
		}
	}
	return update, nil
}
