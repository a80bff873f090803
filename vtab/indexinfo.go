package vtab

// ConstraintOp identifies the comparison a query plans to apply to a
// column, restricted to the handful BestIndex understands.
type ConstraintOp int

const (
	OpOther ConstraintOp = iota
	OpGT
	OpGE
)

// TSColumn is the index of the always-present leading timestamp column.
const TSColumn = 0

// Constraint mirrors one sqlite3_index_constraint entry: a candidate
// WHERE-clause term on a single column.
type Constraint struct {
	Column int
	Op     ConstraintOp
	Usable bool
}

// IndexInfo is the subset of sqlite3_index_info BestIndex needs: the
// candidate constraints and whether the query also requested an ORDER BY
// on a single ascending column.
type IndexInfo struct {
	Constraints    []Constraint
	OrderByCount   int
	OrderByColumn  int
	OrderByDesc    bool
}

// IndexPlan is BestIndex's verdict: which constraint (if any) becomes
// Filter's sole bound argument, and the cost/row estimates SQLite's query
// planner uses to choose between tables.
type IndexPlan struct {
	// IdxNum encodes which bound was chosen as a bitmap: bit 0 set means
	// ts > bound, bit 1 set means ts >= bound. Zero means "no seek, read
	// from wherever the cursor currently is".
	IdxNum int
	// ConstraintArgvIndex[i] is the 1-based argv position assigned to
	// Constraints[i], or 0 if that constraint isn't used.
	ConstraintArgvIndex []int
	OrderByConsumed     bool
	EstimatedCost       float64
	EstimatedRows       int64
}

// BestIndex picks the cheapest usable plan: a `>` or `>=` constraint on
// the ts column becomes Filter's seek bound, and a single ascending
// ORDER BY on any column is reported as already satisfied since rows
// arrive in increasing ts order.
func (t *Table) BestIndex(info IndexInfo) IndexPlan {
	const baseCost = 1.0e3

	plan := IndexPlan{
		ConstraintArgvIndex: make([]int, len(info.Constraints)),
		EstimatedCost:       baseCost,
		EstimatedRows:       10,
	}

	tsIndex := -1
	idxNum := 0
	for i, c := range info.Constraints {
		if !c.Usable || c.Column != TSColumn {
			continue
		}
		switch c.Op {
		case OpGT:
			tsIndex = i
			idxNum |= 1
		case OpGE:
			tsIndex = i
			idxNum |= 2
		default:
			continue
		}
		plan.EstimatedCost -= 100.0
	}
	if tsIndex >= 0 {
		plan.ConstraintArgvIndex[tsIndex] = 1
	}
	if info.OrderByCount == 1 && !info.OrderByDesc {
		plan.OrderByConsumed = true
	}
	plan.IdxNum = idxNum
	return plan
}
