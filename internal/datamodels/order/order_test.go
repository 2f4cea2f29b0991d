package order

import (
	"errors"
	"testing"
	"time"
)

func pendingOrder() *Order {
	return &Order{
		OrderNumber:   "SO1",
		PaymentStatus: PaymentPending,
		OrderStatus:   StatusPending,
	}
}

func TestTransitionToPaid(t *testing.T) {
	o := pendingOrder()
	now := time.Now()
	if err := o.Transition(PaymentPaid, now); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if o.PaymentStatus != PaymentPaid {
		t.Errorf("PaymentStatus = %s", o.PaymentStatus)
	}
	if o.OrderStatus != StatusConfirmed {
		t.Errorf("OrderStatus must follow to confirmed, got %s", o.OrderStatus)
	}
	if o.PaidAt == nil || !o.PaidAt.Equal(now) {
		t.Error("PaidAt must be stamped")
	}
	if !o.UpdatedAt.Equal(now) {
		t.Error("UpdatedAt must be stamped")
	}
}

func TestTransitionToFailedKeepsOrderStatus(t *testing.T) {
	o := pendingOrder()
	if err := o.Transition(PaymentFailed, time.Now()); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if o.PaymentStatus != PaymentFailed {
		t.Errorf("PaymentStatus = %s", o.PaymentStatus)
	}
	// 支付失败不取消订单，用户可以重新发起支付
	if o.OrderStatus != StatusPending {
		t.Errorf("OrderStatus must stay pending, got %s", o.OrderStatus)
	}
	if o.PaidAt != nil {
		t.Error("PaidAt must not be set on failure")
	}
}

func TestTransitionToCancelled(t *testing.T) {
	o := pendingOrder()
	now := time.Now()
	if err := o.Transition(PaymentCancelled, now); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if o.PaymentStatus != PaymentCancelled || o.OrderStatus != StatusCancelled {
		t.Errorf("got %s/%s", o.PaymentStatus, o.OrderStatus)
	}
	if o.CancelledAt == nil {
		t.Error("CancelledAt must be stamped")
	}
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	for _, terminal := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCancelled} {
		for _, to := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCancelled, PaymentPending} {
			o := pendingOrder()
			if err := o.Transition(terminal, time.Now()); err != nil {
				t.Fatalf("setup transition to %s failed: %v", terminal, err)
			}
			before := *o
			err := o.Transition(to, time.Now())
			if !errors.Is(err, ErrAlreadyFinal) {
				t.Errorf("%s -> %s: want ErrAlreadyFinal, got %v", terminal, to, err)
			}
			if o.PaymentStatus != before.PaymentStatus || o.OrderStatus != before.OrderStatus {
				t.Errorf("%s -> %s: rejected transition must not mutate the order", terminal, to)
			}
		}
	}
}

func TestTransitionToPendingInvalid(t *testing.T) {
	o := pendingOrder()
	if err := o.Transition(PaymentPending, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> pending: want ErrInvalidTransition, got %v", err)
	}
}

func TestTerminalPredicate(t *testing.T) {
	if PaymentPending.Terminal() {
		t.Error("pending is not terminal")
	}
	for _, s := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCancelled} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}
