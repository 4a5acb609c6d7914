package recdb

// Delete removes row from its table by row's own key. Deleting a row that
// isn't stored is not an error.
func Delete[R any, P recordPtr[R]](st *Storage, row P) error {
	return DeleteByKey[R, P](st, row.RecordKey())
}

// DeleteByKey removes the row stored under key, if any.
func DeleteByKey[R any, P recordPtr[R]](st *Storage, key Key) error {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return err
	}

	var found bool
	err = st.update(name, "delete", func(tx *writeTx) error {
		buck := tx.Bucket(tbl.name)
		if buck == nil {
			return nil
		}
		found = (buck.Get(key.Bytes()) != nil)
		if !found {
			return nil
		}
		return engineErr("delete", tbl.name, key.Bytes(), buck.Delete(key.Bytes()))
	})
	if err != nil {
		return err
	}
	if st.verbose {
		if found {
			st.logf("db: DELETE %s/%v", tbl.name, key)
		} else {
			st.logf("db: DELETE.NOOP %s/%v", tbl.name, key)
		}
	}
	return nil
}
