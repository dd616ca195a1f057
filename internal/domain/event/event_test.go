package event

import "testing"

func TestDedupeKey(t *testing.T) {
	e := Event{Kind: LoanStatusChanged, SubjectID: "LN-1", Status: "active"}
	if got := e.DedupeKey(); got != "loan.status_changed:LN-1:active" {
		t.Fatalf("DedupeKey=%q", got)
	}
	e.Kind, e.Status, e.Ref = PaymentRecorded, "completed", "PAY-9"
	if got := e.DedupeKey(); got != "loan.payment_recorded:LN-1:completed:PAY-9" {
		t.Fatalf("DedupeKey with ref=%q", got)
	}
}
