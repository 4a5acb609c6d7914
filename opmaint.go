package recdb

// Truncate removes every row of R's table. The table itself stays.
func Truncate[R any, P recordPtr[R]](st *Storage) error {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return err
	}
	err = st.update(name, "truncate", func(tx *writeTx) error {
		err := tx.DeleteBucket(tbl.name)
		if err != nil && err != ErrTableNotFound {
			return err
		}
		_, err = tx.CreateBucket(tbl.name)
		return err
	})
	if err != nil {
		return err
	}
	if st.verbose {
		st.logf("db: TRUNCATE %s", tbl.name)
	}
	return nil
}

// DropTable deletes R's table and all of its rows. Later operations on R
// create the table again.
func DropTable[R any, P recordPtr[R]](st *Storage) error {
	name := tableNameOf[R, P]()
	tbl, err := st.resolveTable(name)
	if err != nil {
		return err
	}
	err = st.update(name, "drop table", func(tx *writeTx) error {
		err := tx.DeleteBucket(tbl.name)
		if err == ErrTableNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	st.evictTable(tbl.name)
	if st.verbose {
		st.logf("db: DROP %s", tbl.name)
	}
	return nil
}
