package recdb

// Get returns the row stored under key, or nil if there is none.
//
// A stored value that cannot be decoded yields a *DataError matching
// ErrCorruptRecord, unless Options.SkipCorrupt is set, in which case it is
// logged and reported as missing.
func Get[R any, P recordPtr[R]](st *Storage, key Key) (*R, error) {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return nil, err
	}

	var row *R
	err = st.view(name, "get", func(tx storageTx) error {
		buck := tx.Bucket(tbl.name)
		if buck == nil {
			return nil
		}
		valueRaw := buck.Get(key.Bytes())
		if valueRaw == nil {
			if st.verbose {
				st.logf("db: GET.NOTFOUND %s/%v", tbl.name, key)
			}
			return nil
		}
		var err error
		row, err = decodeRow[R](st, valueRaw)
		if err != nil {
			if st.skipCorrupt {
				st.logf("db: GET %s/%v: skipping corrupt row: %v", tbl.name, key, err)
				row = nil
				return nil
			}
			return engineErr("decode", tbl.name, key.Bytes(), err)
		}
		if st.verbose {
			st.logf("db: GET %s/%v => %d bytes", tbl.name, key, len(valueRaw))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Exists reports whether a row is stored under key, without decoding it.
func Exists[R any, P recordPtr[R]](st *Storage, key Key) (bool, error) {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return false, err
	}

	var found bool
	err = st.view(name, "get", func(tx storageTx) error {
		if buck := tx.Bucket(tbl.name); buck != nil {
			found = (buck.Get(key.Bytes()) != nil)
		}
		return nil
	})
	if st.verbose {
		st.logf("db: EXISTS.%s %s/%v", map[bool]string{false: "NO", true: "YES"}[found], tbl.name, key)
	}
	return found, err
}
