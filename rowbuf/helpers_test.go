package rowbuf_test

import "github.com/linuxfood/setab/row"

func makeRow(id, tsMS int64, extra ...row.Value) row.Row {
	cols := append([]row.Value{row.IntValue(tsMS)}, extra...)
	return row.New(id, cols)
}
