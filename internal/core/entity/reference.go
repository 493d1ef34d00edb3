// Package entity provides shared domain primitives.
package entity

import (
	"kasbook/internal/core/id"
)

// ReferenceKind identifies the business document type a ledger entry
// originated from. The ledgers never resolve the document; they only
// carry the (kind, id) pair for audit and display.
type ReferenceKind string

const (
	RefSale     ReferenceKind = "sale"
	RefPurchase ReferenceKind = "purchase"
	RefPayroll  ReferenceKind = "payroll"
	RefExpense  ReferenceKind = "expense"
	RefManual   ReferenceKind = "manual"
)

// Reference is an opaque pointer to the originating document.
type Reference struct {
	Kind ReferenceKind `json:"kind"`
	ID   id.ID         `json:"id"`
}

// ValidReferenceKind reports whether k is a known reference kind.
func ValidReferenceKind(k ReferenceKind) bool {
	switch k {
	case RefSale, RefPurchase, RefPayroll, RefExpense, RefManual:
		return true
	}
	return false
}
