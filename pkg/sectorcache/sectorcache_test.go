package sectorcache

import (
	"bytes"
	"fmt"
	"testing"
)

type fakeBackend struct {
	reads, writes int
	store         map[uint32][]byte
	sectorSize    uint32
}

func newFakeBackend(sectorSize uint32) *fakeBackend {
	return &fakeBackend{store: make(map[uint32][]byte), sectorSize: sectorSize}
}

func (f *fakeBackend) InternalRead(sectorNumber, sectorSize uint32, out []byte) error {
	f.reads++
	data, ok := f.store[sectorNumber]
	if !ok {
		data = make([]byte, sectorSize)
	}
	copy(out, data)
	return nil
}

func (f *fakeBackend) InternalWrite(sectorNumber, sectorSize uint32, in []byte) error {
	f.writes++
	buf := make([]byte, sectorSize)
	copy(buf, in)
	f.store[sectorNumber] = buf
	return nil
}

func (f *fakeBackend) InternalHybridRead(sectorNumber, sectorSize uint32, out []byte) error {
	return f.InternalRead(sectorNumber, sectorSize, out)
}

func TestReadIsIdempotentAfterCacheFill(t *testing.T) {
	backend := newFakeBackend(512)
	backend.store[3] = bytes.Repeat([]byte{0xAB}, 512)
	c := New(backend, 64*1024)

	out1 := make([]byte, 512)
	if err := c.ReadData(3, 512, out1); err != nil {
		t.Fatalf("first read: %v", err)
	}
	out2 := make([]byte, 512)
	if err := c.ReadData(3, 512, out2); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !bytes.Equal(out1, out2) {
		t.Fatalf("cached read diverged from first read")
	}
	if backend.reads != 1 {
		t.Fatalf("expected exactly one backend read after cache fill, got %d", backend.reads)
	}
}

func TestWriteUpdatesCacheAndBackend(t *testing.T) {
	backend := newFakeBackend(512)
	c := New(backend, 64*1024)

	payload := bytes.Repeat([]byte{0x42}, 512)
	if err := c.WriteData(5, 512, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if backend.writes != 1 {
		t.Fatalf("expected one backend write, got %d", backend.writes)
	}

	out := make([]byte, 512)
	if err := c.ReadData(5, 512, out); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("read back %x, want %x", out, payload)
	}
	if backend.reads != 0 {
		t.Fatalf("write should have populated the cache; expected zero backend reads, got %d", backend.reads)
	}
}

func TestZeroBudgetDisablesCaching(t *testing.T) {
	backend := newFakeBackend(512)
	backend.store[1] = bytes.Repeat([]byte{0x01}, 512)
	c := New(backend, 0)

	out := make([]byte, 512)
	for i := 0; i < 3; i++ {
		if err := c.ReadData(1, 512, out); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	if backend.reads != 3 {
		t.Fatalf("expected every read to fall through with a zero budget, got %d backend reads", backend.reads)
	}
	if c.Len() != 0 {
		t.Fatalf("expected no cache entries with a zero budget, got %d", c.Len())
	}
}

func TestLRUEvictsExactlyOneOldestEntry(t *testing.T) {
	backend := newFakeBackend(512)
	for i := uint32(0); i < 4; i++ {
		backend.store[i] = bytes.Repeat([]byte{byte(i)}, 512)
	}
	// Budget for exactly 3 entries of 512 bytes.
	c := New(backend, 3*512)

	out := make([]byte, 512)
	for i := uint32(0); i < 3; i++ {
		if err := c.ReadData(i, 512, out); err != nil {
			t.Fatalf("warm read %d: %v", i, err)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 resident entries, got %d", c.Len())
	}

	// Touch sector 0 again so it is not the least recently used.
	if err := c.ReadData(0, 512, out); err != nil {
		t.Fatalf("touch sector 0: %v", err)
	}

	// Bringing in a 4th distinct sector must evict exactly one entry, and
	// it must be the least recently used one (sector 1).
	if err := c.ReadData(3, 512, out); err != nil {
		t.Fatalf("read sector 3: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected cache to stay at 3 entries after eviction, got %d", c.Len())
	}

	backend.reads = 0
	if err := c.ReadData(1, 512, out); err != nil {
		t.Fatalf("re-read evicted sector: %v", err)
	}
	if backend.reads != 1 {
		t.Fatalf("expected evicted sector 1 to require a fresh backend read, got %d reads", backend.reads)
	}

	backend.reads = 0
	if err := c.ReadData(0, 512, out); err != nil {
		t.Fatalf("re-read touched sector: %v", err)
	}
	if backend.reads != 0 {
		t.Fatalf("sector 0 was touched last and should still be resident, got %d backend reads", backend.reads)
	}
}

func TestResetCacheForcesFallthrough(t *testing.T) {
	backend := newFakeBackend(512)
	backend.store[7] = bytes.Repeat([]byte{0x77}, 512)
	c := New(backend, 64*1024)

	out := make([]byte, 512)
	if err := c.ReadData(7, 512, out); err != nil {
		t.Fatalf("warm read: %v", err)
	}
	c.ResetCache()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after reset, got %d entries", c.Len())
	}

	backend.reads = 0
	if err := c.ReadData(7, 512, out); err != nil {
		t.Fatalf("read after reset: %v", err)
	}
	if backend.reads != 1 {
		t.Fatalf("expected a backend read after reset, got %d", backend.reads)
	}
}

func TestHybridReadDelegatesWithoutCaching(t *testing.T) {
	backend := newFakeBackend(512)
	backend.store[9] = bytes.Repeat([]byte{0x09}, 512)
	c := New(backend, 64*1024)

	out := make([]byte, 512)
	if err := c.HybridReadData(9, 512, out); err != nil {
		t.Fatalf("hybrid read: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("hybrid reads must not populate the LRU cache, got %d entries", c.Len())
	}
	if got, want := fmt.Sprintf("%x", out[:1]), "09"; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
