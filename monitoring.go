package recdb

import (
	"encoding/json"
	"reflect"
)

type TableStats struct {
	Rows int

	DataSize  int
	DataAlloc int
}

// StorageStats is a point-in-time snapshot of the storage counters.
type StorageStats struct {
	Reads       uint64
	Writes      uint64
	OpenQueries int64
	Size        int64
	Tables      map[string]TableStats
}

func (ss *StorageStats) TotalRows() int {
	var n int
	for _, ts := range ss.Tables {
		n += ts.Rows
	}
	return n
}

// TableStatsOf returns the row count and space usage of R's table.
func TableStatsOf[R any, P recordPtr[R]](st *Storage) (TableStats, error) {
	name := tableNameOf[R, P]()
	var result TableStats
	err := st.view(name, "stats", func(tx storageTx) error {
		if buck := tx.Bucket(name); buck != nil {
			result = buck.Stats()
		}
		return nil
	})
	return result, err
}

// Stats returns the operation counters and per-table statistics for every
// table in the storage.
func (st *Storage) Stats() (StorageStats, error) {
	result := StorageStats{
		Reads:       st.ReadCount.Load(),
		Writes:      st.WriteCount.Load(),
		OpenQueries: st.ReaderCount.Load(),
		Size:        st.Size(),
		Tables:      make(map[string]TableStats),
	}
	err := st.view("", "stats", func(tx storageTx) error {
		for _, name := range tx.BucketNames() {
			result.Tables[name] = tx.Bucket(name).Stats()
		}
		return nil
	})
	return result, err
}

func loggableVal(rowVal reflect.Value) string {
	if !rowVal.IsValid() {
		return "<none>"
	}
	raw, err := json.Marshal(rowVal.Interface())
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(raw)
}
