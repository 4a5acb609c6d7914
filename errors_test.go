package recdb

import (
	"errors"
	"strings"
	"testing"
)

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) {
			t.Fatalf("errors.Is(err, inner) = false, wanted true")
		}
		if !errors.Is(err, ErrCorruptRecord) {
			t.Fatalf("errors.Is(err, ErrCorruptRecord) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "(2)") {
			t.Fatalf("err.Error() = %q, wanted message with oops/inner/(2)", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 0, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestEngineError(t *testing.T) {
	if engineErr("put", "Place", nil, nil) != nil {
		t.Fatalf("engineErr(nil) != nil")
	}

	inner := errors.New("inner")
	err := engineErr("put", "Place", []byte{0, 1}, inner)
	deepEqual(t, err.Error(), "recdb: put Place/0001: inner")
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}

	deepEqual(t, engineErr("open", "", nil, inner).Error(), "recdb: open: inner")
}

func TestEncodeError(t *testing.T) {
	err := &EncodeError{Table: "Brittle", Key: []byte{3}, Err: errBrittle}
	deepEqual(t, err.Error(), "recdb: encode Brittle/03: brittle")
	if !errors.Is(err, errBrittle) {
		t.Fatalf("errors.Is(err, errBrittle) = false, wanted true")
	}
	if errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("EncodeError must not match ErrCorruptRecord")
	}
}

func TestFileError(t *testing.T) {
	inner := errors.New("inner")
	err := &FileError{Path: "/x", Err: inner}
	deepEqual(t, err.Error(), "recdb: cannot access directory /x: inner")
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
}

func TestWrapOpErr(t *testing.T) {
	de := dataErrf(nil, 0, nil, "x")
	if wrapOpErr("get", "T", de) != de {
		t.Errorf("wrapOpErr changed a *DataError")
	}
	wrapped := wrapOpErr("get", "T", errors.New("boom"))
	var ee *EngineError
	if !errors.As(wrapped, &ee) || ee.Op != "get" || ee.Table != "T" {
		t.Errorf("wrapOpErr(bare) = %v, wanted EngineError", wrapped)
	}
}

func TestSafelyCall(t *testing.T) {
	_, err := safelyCall(func() (int, error) {
		panic("kaboom")
	})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("safelyCall err = %v, wanted panic error", err)
	}

	v, err := safelyCall(func() (int, error) { return 42, nil })
	ok(t, err)
	deepEqual(t, v, 42)
}

func TestEngineError_LongKey(t *testing.T) {
	key := make([]byte, 30000)
	for i := range key {
		key[i] = byte(i)
	}
	s := engineErr("put", "Tag", key, ErrMapFull).Error()
	if len(s) > 300 {
		t.Fatalf("len(err.Error()) = %d, wanted a shortened key: %.120q", len(s), s)
	}
	if !strings.Contains(s, "...") || !strings.Contains(s, "(30000 bytes)") || !strings.HasSuffix(s, ErrMapFull.Error()) {
		t.Fatalf("err.Error() = %q", s)
	}

	s = (&EncodeError{Table: "Tag", Key: key, Err: errBrittle}).Error()
	if len(s) > 300 {
		t.Fatalf("len(EncodeError.Error()) = %d, wanted a shortened key", len(s))
	}
}
