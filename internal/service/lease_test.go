package service

import "testing"

func TestLeaseTable(t *testing.T) {
	table := newLeaseTable()
	purged := 0
	purge := func() { purged++ }

	if table.deferPurge("a", purge) {
		t.Fatal("purge without leases must not be deferred")
	}

	table.acquire("a")
	table.acquire("a")
	if table.open("a") != 2 {
		t.Fatalf("expect 2 leases, got %d", table.open("a"))
	}
	if !table.deferPurge("a", purge) {
		t.Fatal("purge with open leases must be deferred")
	}
	if fn := table.release("a"); fn != nil {
		t.Fatal("purge released before the last lease")
	}
	fn := table.release("a")
	if fn == nil {
		t.Fatal("last release should hand back the parked purge")
	}
	fn()
	if purged != 1 || table.open("a") != 0 {
		t.Fatalf("unexpected state: purged=%d open=%d", purged, table.open("a"))
	}

	table.acquire("a")
	if fn := table.release("a"); fn != nil {
		t.Fatal("purge must only run once")
	}
}
