package schema

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

// fakeService serves a fixed schema. Tables listed in fail return an error
// from GetTableDetails; gate, when set, blocks LoadDatabaseSchema until closed.
type fakeService struct {
	schema   *core.DatabaseSchema
	details  map[string]core.TableDetails
	fail     map[string]bool
	listErr  error
	gate     chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeService) LoadDatabaseSchema(ctx context.Context, _ adapter.Connection, _ uuid.UUID) (*core.DatabaseSchema, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.schema, nil
}

func (f *fakeService) GetTableDetails(_ context.Context, _ adapter.Connection, _ uuid.UUID, table, _ string) (*core.TableDetails, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.fail[table] {
		return nil, fmt.Errorf("permission denied for table %s", table)
	}
	d := f.details[table]
	return &d, nil
}

func shopService() *fakeService {
	return &fakeService{
		schema: &core.DatabaseSchema{
			Tables: []core.TableInfo{{Name: "customers"}, {Name: "orders"}, {Name: "audit_log"}},
			Views:  []core.ViewInfo{{Name: "order_totals", Definition: "SELECT 1"}},
			Functions: []core.RoutineInfo{
				{Name: "order_count", ReturnType: "integer"},
			},
			Procedures:   []core.RoutineInfo{{Name: "archive_orders"}},
			Triggers:     []core.TriggerInfo{{Name: "orders_audit", Table: "orders", Timing: "AFTER", Event: "INSERT"}},
			TableIndexes: []core.IndexInfo{{Name: "orders_customer_idx", Table: "orders", Columns: []string{"customer_id"}}},
		},
		details: map[string]core.TableDetails{
			"customers": {Columns: []core.ColumnInfo{
				{Name: "id", DataType: "integer", PrimaryKey: true},
				{Name: "name", DataType: "text", Nullable: true},
			}},
			"orders": {
				Columns: []core.ColumnInfo{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "customer_id", DataType: "integer"},
					{Name: "total", DataType: "numeric", Nullable: true},
				},
				ForeignKeys: []core.ForeignKey{
					{Name: "orders_customer_fk", Columns: []string{"customer_id"}, RefTable: "customers", RefColumns: []string{"id"}},
				},
			},
			"audit_log": {Columns: []core.ColumnInfo{{Name: "entry", DataType: "text"}}},
		},
	}
}
