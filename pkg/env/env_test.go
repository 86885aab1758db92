package env

import "testing"

func TestGetFallsBackWhenBlank(t *testing.T) {
	t.Setenv("WORKBOOKS_TEST_VALUE", "   ")
	if got := Get("WORKBOOKS_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("WORKBOOKS_TEST_VALUE", "set")
	if got := Get("WORKBOOKS_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestInstanceIDPrefersWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "worker-7")
	t.Setenv("HOSTNAME", "host-1")
	if got := InstanceID(); got != "worker-7" {
		t.Fatalf("expected worker-7, got %q", got)
	}
}

func TestInstanceIDDefaultsToLocal(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("K_REVISION", "")
	t.Setenv("HOSTNAME", "")
	if got := InstanceID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
