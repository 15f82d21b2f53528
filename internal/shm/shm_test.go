//go:build linux

package shm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bsc-dlb/talp-go/internal/errs"
)

func testProps(key string, size int, version uint32) Props {
	return Props{Size: size, Name: "test", Key: key, Version: version}
}

func TestOpenCreateThenAttach(t *testing.T) {
	key := fmt.Sprintf("talp-go-test-%d", 1)
	s1, err := Open(testProps(key, headerSize+256, 7))
	if err != nil {
		t.Fatalf("Open (create): %v", err)
	}
	defer s1.Finalize(false)

	if got := s1.Version(); got != 7 {
		t.Fatalf("Version() = %d, want 7", got)
	}

	s2, err := Open(testProps(key, headerSize+256, 7))
	if err != nil {
		t.Fatalf("Open (attach): %v", err)
	}
	defer s2.Finalize(false)

	if got := s2.Version(); got != 7 {
		t.Fatalf("attacher Version() = %d, want 7", got)
	}
}

func TestOpenVersionMismatch(t *testing.T) {
	key := fmt.Sprintf("talp-go-test-vm-%d", 2)
	s1, err := Open(testProps(key, headerSize+256, 1))
	if err != nil {
		t.Fatalf("Open (create): %v", err)
	}
	defer s1.Finalize(false)

	_, err = Open(testProps(key, headerSize+256, 2))
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
	if !errors.Is(err, errs.ErrVersionMismatch) {
		t.Fatalf("got %v, want ErrVersionMismatch", err)
	}
}

func TestOpenSizeMismatch(t *testing.T) {
	key := fmt.Sprintf("talp-go-test-sz-%d", 3)
	s1, err := Open(testProps(key, headerSize+256, 1))
	if err != nil {
		t.Fatalf("Open (create): %v", err)
	}
	defer s1.Finalize(false)

	_, err = Open(testProps(key, headerSize+512, 1))
	if err == nil {
		t.Fatal("expected size mismatch error")
	}
	if !errors.Is(err, errs.ErrSizeMismatch) {
		t.Fatalf("got %v, want ErrSizeMismatch", err)
	}
}

func TestLockUnlock(t *testing.T) {
	key := fmt.Sprintf("talp-go-test-lock-%d", 4)
	s, err := Open(testProps(key, headerSize+256, 1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Finalize(false)

	if err := s.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := s.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestFinalizeUnlinksOnLastRef(t *testing.T) {
	key := fmt.Sprintf("talp-go-test-fin-%d", 5)
	s, err := Open(testProps(key, headerSize+256, 1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Finalize(false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	s2, err := Open(testProps(key, headerSize+256, 1))
	if err != nil {
		t.Fatalf("re-Open after finalize should recreate cleanly: %v", err)
	}
	if !s2.created {
		t.Fatal("expected re-Open after unlink to recreate the segment")
	}
	s2.Finalize(false)
}
