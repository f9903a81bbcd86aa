package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/congo-pay/custody/internal/money"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "wallet_ledger_activity_ref_key"}
	if !isUniqueViolation(dup) {
		t.Fatal("expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert entry: %w", dup)) {
		t.Fatal("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23514"}) {
		t.Fatal("check violation reported as unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error reported as unique violation")
	}
}

func TestValidateRejectsSubCentAmounts(t *testing.T) {
	if err := validateCredit(CreditInput{Address: "0xa", Amount: dec("10.001")}); !errors.Is(err, money.ErrAmountPrecision) {
		t.Fatalf("credit: expected precision error, got %v", err)
	}
	if err := validateTransfer(TransferInput{FromAddress: "0xa", ToAddress: "0xb", Amount: dec("0.005")}); !errors.Is(err, money.ErrAmountPrecision) {
		t.Fatalf("transfer: expected precision error, got %v", err)
	}
	if err := validateTransfer(TransferInput{FromAddress: "0xa", ToAddress: "0xb", Amount: dec("0.01")}); err != nil {
		t.Fatalf("transfer: unexpected error %v", err)
	}
}
