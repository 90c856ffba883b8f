package services

import (
	"context"
	"testing"
	"time"
)

func TestLease(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	clk := &clock{now: testNow}
	a := NewLease(db, "reminders", 10*time.Minute)
	b := NewLease(db, "reminders", 10*time.Minute)
	a.now, b.now = clk.Now, clk.Now

	acquire := func(l *Lease) bool {
		t.Helper()
		ok, err := l.Acquire(ctx)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		return ok
	}

	if !acquire(a) {
		t.Fatal("a should get a fresh lease")
	}
	if acquire(b) {
		t.Fatal("b must not get a lease held by a")
	}
	if !acquire(a) {
		t.Fatal("a should renew its own lease")
	}

	clk.Advance(11 * time.Minute)
	if !acquire(b) {
		t.Fatal("b should take over an expired lease")
	}
	if acquire(a) {
		t.Fatal("a lost the lease to b")
	}
	if ok, err := a.Renew(ctx); err != nil || ok {
		t.Fatalf("a must not renew a lease b holds: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Renew(ctx); err != nil || !ok {
		t.Fatalf("b should renew its lease: ok=%v err=%v", ok, err)
	}

	if err := b.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !acquire(a) {
		t.Fatal("a should get a released lease")
	}

	if err := b.Release(ctx); err != nil {
		t.Fatalf("release by non-holder: %v", err)
	}
	if acquire(b) {
		t.Fatal("release by a non-holder must not free the lease")
	}
}
