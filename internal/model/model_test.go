package model

import "testing"

func TestParseOrderStatus(t *testing.T) {
	cases := []struct {
		in    string
		want  OrderStatus
		known bool
	}{
		{"pending", StatusPending, true},
		{"new", StatusPending, true},
		{"Confirmed", StatusConfirmed, true},
		{"  delivered ", StatusDelivered, true},
		{"canceled", StatusCancelled, true},
		{"cancelled", StatusCancelled, true},
		{"قيد الانتظار", StatusPending, true},
		{"معلق", StatusPending, true},
		{"مؤكد", StatusConfirmed, true},
		{"تم التوصيل", StatusDelivered, true},
		{"تم التسليم", StatusDelivered, true},
		{"ملغي", StatusCancelled, true},
		{"shipped", StatusPending, false},
		{"", StatusPending, false},
	}
	for _, tc := range cases {
		got, known := ParseOrderStatus(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("ParseOrderStatus(%q) = %s,%v want %s,%v", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, st := range []OrderStatus{StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled} {
		if !st.Valid() {
			t.Errorf("%s must be valid", st)
		}
	}
	if OrderStatus("shipped").Valid() {
		t.Error("unknown status must not be valid")
	}
}

func TestOrderCanonicalStatus(t *testing.T) {
	o := Order{ID: "o1", Status: "تم التوصيل"}
	if got := o.CanonicalStatus(); got != StatusDelivered {
		t.Fatalf("CanonicalStatus = %s", got)
	}
}
