package recdb

// Save writes row to its table, replacing any row with the same key.
func Save[R any, P recordPtr[R]](st *Storage, row P) error {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return err
	}
	return st.update(name, "put", func(tx *writeTx) error {
		buck, err := tbl.bucketForWrite(tx)
		if err != nil {
			return err
		}
		return st.putRow(tx, buck, tbl, row)
	})
}

// SaveBatch writes all rows in one transaction, in slice order. If any row
// fails to encode or store, nothing is written.
func SaveBatch[R any, P recordPtr[R]](st *Storage, rows []P) error {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return err
	}
	return st.update(name, "put", func(tx *writeTx) error {
		buck, err := tbl.bucketForWrite(tx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			err := st.putRow(tx, buck, tbl, row)
			if err != nil {
				return err
			}
		}
		if st.verbose && len(rows) > 1 {
			st.logf("db: PUT_BATCH %s (%d rows)", tbl.name, len(rows))
		}
		return nil
	})
}

func (st *Storage) putRow(tx *writeTx, buck storageBucket, tbl *table, row Record) error {
	key := row.RecordKey()
	keyRaw := key.Bytes()
	if len(keyRaw) == 0 {
		return engineErr("put", tbl.name, keyRaw, ErrEmptyKey)
	}

	valueRaw, err := st.encodeRow(row)
	if err != nil {
		return &EncodeError{Table: tbl.name, Key: keyRaw, Err: err}
	}

	err = tx.put(buck, keyRaw, valueRaw)
	if err != nil {
		return engineErr("put", tbl.name, keyRaw, err)
	}

	if st.verbose {
		st.logf("db: PUT %s/%v => %d bytes", tbl.name, hexBytes(keyRaw), len(valueRaw))
	}
	return nil
}

// bucketForWrite returns the table's bucket, recreating it if another
// Storage instance dropped it since the handle was cached.
func (tbl *table) bucketForWrite(tx *writeTx) (storageBucket, error) {
	if buck := tx.Bucket(tbl.name); buck != nil {
		return buck, nil
	}
	buck, err := tx.CreateBucket(tbl.name)
	if err != nil {
		return nil, engineErr("create table", tbl.name, nil, err)
	}
	return buck, nil
}
