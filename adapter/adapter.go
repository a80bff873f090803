// Package adapter bridges vtab.Table/vtab.Cursor to mattn/go-sqlite3's
// virtual-table callback ABI (sqlite3.Module, sqlite3.VTab,
// sqlite3.VTabCursor, sqlite3.VTabUpdater, sqlite3.VTabRenamer).
// Component C10: everything here is a thin shim with no streaming
// behavior of its own, so that behavior stays unit-testable in vtab
// without cgo or a live SQLite connection.
package adapter

import (
	"context"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/linuxfood/setab/internal/nlog"
	"github.com/linuxfood/setab/registry"
	"github.com/linuxfood/setab/row"
	"github.com/linuxfood/setab/vtab"
	"github.com/linuxfood/setab/xerrors"
)

// SQLite's stable C-ABI constraint operator codes (sqlite3.h), used
// directly since go-sqlite3 passes them through verbatim on
// InfoConstraint.Op.
const (
	constraintEQ byte = 2
	constraintGT byte = 4
	constraintLE byte = 8
	constraintLT byte = 16
	constraintGE byte = 32
)

// Module implements sqlite3.Module, registering one vtab.Table per
// CREATE VIRTUAL TABLE statement against a shared Registry.
type Module struct {
	Registry *registry.Registry
}

// NewModule returns a Module backed by a fresh Registry.
func NewModule() *Module {
	return &Module{Registry: registry.New()}
}

// Create parses a fresh CREATE VIRTUAL TABLE invocation. args follows
// go-sqlite3's convention: args[0] module name, args[1] database name,
// args[2] table name, args[3:] the comma-separated argument list.
func (m *Module) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	if len(args) < 3 {
		return nil, xerrors.New(xerrors.Config, "missing table name in CREATE VIRTUAL TABLE arguments")
	}
	name := args[2]
	rawArgs := args[3:]

	t, err := vtab.New(context.Background(), name, rawArgs, m.Registry)
	if err != nil {
		return nil, err
	}
	if err := c.DeclareVTab(t.Schema()); err != nil {
		_ = t.Close()
		return nil, err
	}
	return &tableAdapter{t: t}, nil
}

// Connect re-attaches to an existing table definition; this module has
// no persisted state beyond the running registry, so Connect behaves
// identically to Create.
func (m *Module) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	return m.Create(c, args)
}

// DestroyModule is a no-op: table lifetime is scoped to each Table's own
// Close, not the module.
func (m *Module) DestroyModule() {}

type tableAdapter struct {
	t *vtab.Table
}

func (a *tableAdapter) BestIndex(cst []sqlite3.InfoConstraint, ob []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	info := vtab.IndexInfo{Constraints: make([]vtab.Constraint, len(cst))}
	for i, c := range cst {
		info.Constraints[i] = vtab.Constraint{
			Column: c.Column,
			Op:     mapOp(c.Op),
			Usable: c.Usable,
		}
	}
	if len(ob) == 1 {
		info.OrderByCount = 1
		info.OrderByColumn = ob[0].Column
		info.OrderByDesc = ob[0].Desc
	}

	plan := a.t.BestIndex(info)
	used := make([]bool, len(cst))
	for i, argv := range plan.ConstraintArgvIndex {
		used[i] = argv > 0
	}
	return &sqlite3.IndexResult{
		Used:           used,
		IdxNum:         plan.IdxNum,
		AlreadyOrdered: plan.OrderByConsumed,
		EstimatedCost:  plan.EstimatedCost,
		EstimatedRows:  float64(plan.EstimatedRows),
	}, nil
}

func mapOp(op byte) vtab.ConstraintOp {
	switch op {
	case constraintGT:
		return vtab.OpGT
	case constraintGE:
		return vtab.OpGE
	default:
		return vtab.OpOther
	}
}

func (a *tableAdapter) Open() (sqlite3.VTabCursor, error) {
	if err := a.t.CheckReadable(); err != nil {
		return nil, err
	}
	return &cursorAdapter{c: a.t.Open()}, nil
}

func (a *tableAdapter) Disconnect() error { return nil }

func (a *tableAdapter) Destroy() error { return a.t.Close() }

// Rename satisfies sqlite3.VTabRenamer: ALTER TABLE ... RENAME TO.
func (a *tableAdapter) Rename(newName string) error {
	a.t.Rename(newName)
	return nil
}

// Update satisfies sqlite3.VTabUpdater. This table only ever accepts
// plain INSERT: argc==1 is a DELETE (rejected), argc>1 with a non-NULL
// vals[0] is an UPDATE of an existing rowid (rejected, rows have no
// stable identity to update), and argc>1 with vals[0]==nil is the
// INSERT path that forwards the row downstream.
func (a *tableAdapter) Update(vals []interface{}) (int64, error) {
	if err := a.t.CheckWritable(); err != nil {
		return 0, err
	}
	if len(vals) == 1 {
		return 0, xerrors.New(xerrors.Semantic, "DELETE is not supported on a streaming table")
	}
	if vals[0] != nil {
		return 0, xerrors.New(xerrors.Semantic, "UPDATE is not supported on a streaming table")
	}
	cols := vals[2:]
	strs := make([]string, len(cols))
	for i, v := range cols {
		strs[i] = stringifyValue(v)
	}
	if err := a.t.Write(strs); err != nil {
		return 0, err
	}
	return 0, nil
}

func stringifyValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

type cursorAdapter struct {
	c *vtab.Cursor
}

func (a *cursorAdapter) Filter(idxNum int, idxStr string, vals []interface{}) error {
	var startTSMs int64
	if len(vals) > 0 {
		if n, ok := vals[0].(int64); ok {
			startTSMs = n
		}
	}
	a.c.Filter(idxNum, startTSMs)
	return nil
}

func (a *cursorAdapter) Next() error {
	a.c.NextRow()
	return nil
}

func (a *cursorAdapter) EOF() bool { return a.c.IsEOF() }

func (a *cursorAdapter) Column(ctx *sqlite3.SQLiteContext, col int) error {
	v := a.c.Column(col)
	switch v.Type {
	case row.Integer:
		ctx.ResultInt64(v.Int)
	case row.Text:
		ctx.ResultText(v.Str)
	default:
		nlog.Warningln("adapter: unknown column type for column", col)
	}
	return nil
}

func (a *cursorAdapter) Rowid() (int64, error) { return a.c.RowID(), nil }

func (a *cursorAdapter) Close() error { return a.c.Close() }
