package registry

import "testing"

func TestEmplaceGet(t *testing.T) {
	r := New[string]()

	h := r.Emplace("mesh-0")
	if !h.Valid() {
		t.Fatal("expected issued handle to be valid")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 live entry, got %d", r.Len())
	}

	v, err := r.Get(h)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if *v != "mesh-0" {
		t.Errorf("expected mesh-0, got %q", *v)
	}
}

func TestZeroHandleRejected(t *testing.T) {
	r := New[int]()
	r.Emplace(1)

	var zero Handle[int]
	if zero.Valid() {
		t.Error("zero handle should not be valid")
	}
	if _, err := r.Get(zero); err == nil {
		t.Error("expected error dereferencing zero handle")
	}
}

func TestRemoveInvalidatesHandle(t *testing.T) {
	r := New[int]()
	h := r.Emplace(42)

	if err := r.Remove(h); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected 0 live entries, got %d", r.Len())
	}

	// The old handle must be detected as stale, never resolve stale data.
	if _, err := r.Get(h); err == nil {
		t.Error("expected error resolving recycled handle")
	}
	if err := r.Remove(h); err == nil {
		t.Error("expected error removing recycled handle twice")
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	r := New[int]()
	h1 := r.Emplace(1)
	if err := r.Remove(h1); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	// The freed slot must be reused with a higher generation.
	h2 := r.Emplace(2)
	if h2 == h1 {
		t.Fatal("recycled slot reissued an identical handle")
	}

	v, err := r.Get(h2)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if *v != 2 {
		t.Errorf("expected 2, got %d", *v)
	}

	// The original handle stays stale even though the slot is live again.
	if _, err := r.Get(h1); err == nil {
		t.Error("expected stale error for pre-recycle handle")
	}
}

func TestClearInvalidatesAll(t *testing.T) {
	r := New[int]()
	handles := make([]Handle[int], 0, 4)
	for i := 0; i < 4; i++ {
		handles = append(handles, r.Emplace(i))
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("expected empty registry after Clear, got %d", r.Len())
	}
	for i, h := range handles {
		if _, err := r.Get(h); err == nil {
			t.Errorf("handle %d still resolves after Clear", i)
		}
	}

	// The arena remains usable after Clear.
	h := r.Emplace(99)
	v, err := r.Get(h)
	if err != nil {
		t.Fatalf("Get after Clear returned error: %v", err)
	}
	if *v != 99 {
		t.Errorf("expected 99, got %d", *v)
	}
}

func TestEachVisitsLiveOnly(t *testing.T) {
	r := New[int]()
	h1 := r.Emplace(1)
	r.Emplace(2)
	if err := r.Remove(h1); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	sum := 0
	r.Each(func(v *int) { sum += *v })
	if sum != 2 {
		t.Errorf("expected Each to visit only live entries (sum 2), got %d", sum)
	}
}
