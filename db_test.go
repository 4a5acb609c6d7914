package recdb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestStorage_PlaceScenario(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		places := []*Place{
			{ID: 1, Name: "Vienna"},
			{ID: 2, Name: "Paris"},
			{ID: 3, Name: "Istanbul"},
		}
		ok(t, SaveBatch(st, places))

		p, err := Get[Place](st, KeyOf[uint32](2))
		ok(t, err)
		deepEqual(t, p, &Place{ID: 2, Name: "Paris"})

		p, err = Find(st, func(p *Place) bool { return p.Name == "Istanbul" })
		ok(t, err)
		deepEqual(t, p, &Place{ID: 3, Name: "Istanbul"})

		all, err := All[Place](st)
		ok(t, err)
		deepEqual(t, all, places)

		ok(t, Truncate[Place](st))
		all, err = All[Place](st)
		ok(t, err)
		isempty(t, all)
		deepEqual(t, st.cachedTableCount(), 1)

		ok(t, DropTable[Place](st))
		deepEqual(t, st.cachedTableCount(), 0)

		ok(t, Save(st, &Place{ID: 9, Name: "Oslo"}))
		deepEqual(t, st.cachedTableCount(), 1)
		n, err := Count[Place](st)
		ok(t, err)
		deepEqual(t, n, 1)
	})
}

func TestStorage_GetMissing(t *testing.T) {
	st := setup(t)
	p, err := Get[Place](st, KeyOf[uint32](42))
	ok(t, err)
	isnil(t, p)

	found, err := Exists[Place](st, KeyOf[uint32](42))
	ok(t, err)
	deepEqual(t, found, false)
}

func TestStorage_Upsert(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		ok(t, Save(st, &Place{ID: 1, Name: "Vienna"}))
		ok(t, Save(st, &Place{ID: 1, Name: "Wien"}))

		p, err := Get[Place](st, KeyOf[uint32](1))
		ok(t, err)
		deepEqual(t, p, &Place{ID: 1, Name: "Wien"})

		n, err := Count[Place](st)
		ok(t, err)
		deepEqual(t, n, 1)
	})
}

func TestStorage_SaveBatch_LastWins(t *testing.T) {
	st := setup(t)
	ok(t, SaveBatch(st, []*Place{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}))
	p, err := Get[Place](st, KeyOf[uint32](1))
	ok(t, err)
	deepEqual(t, p.Name, "b")
}

func TestStorage_SaveBatch_Empty(t *testing.T) {
	st := setup(t)
	ok(t, SaveBatch[Place](st, nil))
	all, err := All[Place](st)
	ok(t, err)
	isempty(t, all)
}

func TestStorage_SaveBatch_Atomic(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		err := SaveBatch(st, []*Brittle{{ID: 1}, {ID: 2}, {ID: 3, Fail: true}})
		var ee *EncodeError
		if !errors.As(err, &ee) {
			t.Fatalf("SaveBatch err = %v, wanted *EncodeError", err)
		}
		if !errors.Is(err, errBrittle) {
			t.Fatalf("SaveBatch err = %v, wanted to wrap errBrittle", err)
		}
		deepEqual(t, ee.Table, "Brittle")
		deepEqual(t, ee.Key, []byte{3})

		n, err := Count[Brittle](st)
		ok(t, err)
		deepEqual(t, n, 0)

		ok(t, SaveBatch(st, []*Brittle{{ID: 1}, {ID: 2}}))
		b, err := Get[Brittle](st, KeyOf[uint8](2))
		ok(t, err)
		deepEqual(t, b, &Brittle{ID: 2})
	})
}

func TestStorage_TablesAreIsolated(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		ok(t, Save(st, &Place{ID: 1, Name: "Vienna"}))
		ok(t, Save(st, &Visit{ID: 1, Person: "Bob"}))

		p, err := Get[Place](st, KeyOf[uint32](1))
		ok(t, err)
		deepEqual(t, p.Name, "Vienna")
		v, err := Get[Visit](st, KeyOf[uint32](1))
		ok(t, err)
		deepEqual(t, v.Person, "Bob")

		ok(t, Truncate[Visit](st))
		p, err = Get[Place](st, KeyOf[uint32](1))
		ok(t, err)
		isnonnil(t, p)

		names, err := st.Tables()
		ok(t, err)
		deepEqual(t, names, []string{"Place", "Visit"})
	})
}

func TestStorage_DropLeavesOtherTables(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		savePlaces(t, st, 1, 2)
		ok(t, Save(st, &Visit{ID: 1, Person: "Bob"}))

		ok(t, DropTable[Visit](st))

		p, err := Get[Place](st, KeyOf[uint32](1))
		ok(t, err)
		deepEqual(t, p, &Place{ID: 1, Name: "p"})
		n, err := Count[Place](st)
		ok(t, err)
		deepEqual(t, n, 2)

		v, err := Get[Visit](st, KeyOf[uint32](1))
		ok(t, err)
		isnil(t, v)
	})
}

func TestStorage_Concurrent(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		const workers = 4
		const rounds = 50

		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(3)
			go func() {
				defer wg.Done()
				for i := range rounds {
					if err := Save(st, &Place{ID: uint32(w*rounds + i), Name: "p"}); err != nil {
						t.Errorf("Save: %v", err)
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				for i := range rounds {
					if err := Save(st, &Visit{ID: uint32(i), Person: "x"}); err != nil {
						t.Errorf("Save(Visit): %v", err)
						return
					}
					if err := DropTable[Visit](st); err != nil {
						t.Errorf("DropTable: %v", err)
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				for range rounds {
					places, err := All[Place](st)
					if err != nil {
						t.Errorf("All: %v", err)
						return
					}
					for i := 1; i < len(places); i++ {
						if places[i-1].ID >= places[i].ID {
							t.Errorf("rows out of order: %d then %d", places[i-1].ID, places[i].ID)
							return
						}
					}
				}
			}()
		}
		wg.Wait()

		n, err := Count[Place](st)
		ok(t, err)
		deepEqual(t, n, workers*rounds)
		deepEqual(t, st.ReaderCount.Load(), int64(0))
	})
}

func TestStorage_DefaultTable(t *testing.T) {
	st := setup(t)
	ok(t, Save(st, &Untabled{ID: 5}))
	names, err := st.Tables()
	ok(t, err)
	deepEqual(t, names, []string{DefaultTableName})
}

func TestStorage_Delete(t *testing.T) {
	forEachBackend(t, Options{Verbose: true}, func(t *testing.T, st *Storage) {
		p := &Place{ID: 1, Name: "Vienna"}
		ok(t, Save(st, p))
		ok(t, Delete(st, p))

		got, err := Get[Place](st, KeyOf[uint32](1))
		ok(t, err)
		isnil(t, got)

		ok(t, Delete(st, p))
		ok(t, DeleteByKey[Place](st, KeyOf[uint32](77)))
	})
}

func TestStorage_EmptyKey(t *testing.T) {
	st := setup(t)
	err := Save(st, &Tag{Name: "", Count: 1})
	if !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Save(empty key) err = %v, wanted ErrEmptyKey", err)
	}
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("Save(empty key) err = %T, wanted *EngineError", err)
	}
}

func TestStorage_StringAndSignedKeys(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		ok(t, SaveBatch(st, []*Tag{{Name: "zig", Count: 1}, {Name: "go", Count: 2}, {Name: "rust", Count: 3}}))
		tags, err := All[Tag](st)
		ok(t, err)
		deepEqual(t, tags, []*Tag{{"go", 2}, {"rust", 3}, {"zig", 1}})

		ok(t, SaveBatch(st, []*Reading{{At: 5}, {At: -5}, {At: 0}, {At: -100}}))
		readings, err := All[Reading](st)
		ok(t, err)
		var ats []int64
		for _, r := range readings {
			ats = append(ats, r.At)
		}
		deepEqual(t, ats, []int64{-100, -5, 0, 5})
	})
}

func TestStorage_Persistence(t *testing.T) {
	dir := t.TempDir()
	st := must(Open(dir, Options{IsTesting: true, Logf: t.Logf}))
	ok(t, Save(st, &Place{ID: 1, Name: "Vienna"}))
	ok(t, st.Close())

	if _, err := os.Stat(filepath.Join(dir, DefaultFileName)); err != nil {
		t.Fatalf("data file missing: %v", err)
	}

	st = must(Open(dir, Options{IsTesting: true, Logf: t.Logf}))
	defer st.Close()
	p, err := Get[Place](st, KeyOf[uint32](1))
	ok(t, err)
	deepEqual(t, p, &Place{ID: 1, Name: "Vienna"})
	if st.Size() == 0 {
		t.Errorf("Size() = 0, wanted non-zero")
	}
	deepEqual(t, st.Path(), dir)
}

func TestOpen_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	st := must(Open(dir, Options{IsTesting: true, FileName: "x.db"}))
	defer st.Close()
	if _, err := os.Stat(filepath.Join(dir, "x.db")); err != nil {
		t.Fatalf("data file missing: %v", err)
	}
}

func TestOpen_FileError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	ensure(os.WriteFile(file, []byte("x"), 0666))

	_, err := Open(filepath.Join(file, "sub"), Options{IsTesting: true})
	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("Open err = %v, wanted *FileError", err)
	}
}

func TestOpen_EngineError(t *testing.T) {
	dir := t.TempDir()
	ensure(os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("definitely not a bolt file, but long enough to be read as a page header"), 0666))

	_, err := Open(dir, Options{IsTesting: true})
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("Open err = %v, wanted *EngineError", err)
	}
	deepEqual(t, ee.Op, "open")
}

func TestStorage_MaxTables(t *testing.T) {
	forEachBackend(t, Options{MaxTables: 2}, func(t *testing.T, st *Storage) {
		ok(t, Save(st, &Place{ID: 1}))
		ok(t, Save(st, &Visit{ID: 1}))
		err := Save(st, &Tag{Name: "x"})
		if !errors.Is(err, ErrTooManyTables) {
			t.Fatalf("Save err = %v, wanted ErrTooManyTables", err)
		}
		deepEqual(t, st.cachedTableCount(), 2)

		ok(t, DropTable[Visit](st))
		ok(t, Save(st, &Tag{Name: "x"}))
	})
}

func TestStorage_MaxSize(t *testing.T) {
	forEachBackend(t, Options{MaxSize: 64 * 1024}, func(t *testing.T, st *Storage) {
		big := make([]*Tag, 0, 100)
		for i := range 100 {
			big = append(big, &Tag{Name: string(rune('A'+i%26)) + string(make([]byte, 1000)) + string(rune('0'+i)), Count: i})
		}
		err := SaveBatch(st, big)
		if !errors.Is(err, ErrMapFull) {
			t.Fatalf("SaveBatch err = %v, wanted ErrMapFull", err)
		}
		n, err := Count[Tag](st)
		ok(t, err)
		deepEqual(t, n, 0)

		ok(t, Save(st, &Tag{Name: "small"}))
	})
}

func TestStorage_MaxSize_JustUnderLimit(t *testing.T) {
	forEachBackend(t, Options{MaxSize: 1024 * 1024}, func(t *testing.T, st *Storage) {
		batch := func(first uint32) []*Place {
			var rows []*Place
			for i := range uint32(3) {
				rows = append(rows, &Place{ID: first + i, Name: strings.Repeat("x", 200*1024)})
			}
			return rows
		}

		ok(t, SaveBatch(st, batch(0)))
		n, err := Count[Place](st)
		ok(t, err)
		deepEqual(t, n, 3)

		err = SaveBatch(st, batch(3))
		if !errors.Is(err, ErrMapFull) {
			t.Fatalf("second SaveBatch err = %v, wanted ErrMapFull", err)
		}
		n, err = Count[Place](st)
		ok(t, err)
		deepEqual(t, n, 3)
	})
}

func TestStorage_Closed(t *testing.T) {
	forEachBackend(t, Options{}, func(t *testing.T, st *Storage) {
		ok(t, Save(st, &Place{ID: 1}))
		ok(t, st.Close())

		_, err := Get[Place](st, KeyOf[uint32](1))
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Get after Close err = %v, wanted ErrClosed", err)
		}
	})
}

func TestStorage_Large(t *testing.T) {
	if testing.Short() {
		t.Skip("slow")
	}
	st := setup(t)
	const n = 10000
	var places []*Place
	for i := range n {
		places = append(places, &Place{ID: uint32(i), Name: "place"})
	}
	ok(t, SaveBatch(st, places))

	c, err := Query[Place](st)
	ok(t, err)
	var count int
	var last uint32
	for p := range c.All() {
		if count > 0 && p.ID <= last {
			t.Fatalf("rows out of order: %d after %d", p.ID, last)
		}
		last = p.ID
		count++
	}
	ok(t, c.Err())
	deepEqual(t, count, n)
}
