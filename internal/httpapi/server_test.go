package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/internal/engine"
	"github.com/leapstack-labs/sqlsense/internal/hover"
	"github.com/leapstack-labs/sqlsense/internal/refactor"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/internal/testutil"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) Execute(context.Context, string, ...any) (int64, error) { return 0, nil }
func (nopConn) Query(context.Context, string, ...any) (*adapter.Rows, error) { return nil, nil }

func shopFixture() *schema.Fixture {
	return &schema.Fixture{Tables: []schema.FixtureTable{
		{
			TableInfo: core.TableInfo{Name: "customers"},
			Columns: []core.ColumnInfo{
				{Name: "id", DataType: "INTEGER", PrimaryKey: true},
				{Name: "email", DataType: "TEXT"},
			},
		},
		{
			TableInfo: core.TableInfo{Name: "orders"},
			Columns: []core.ColumnInfo{
				{Name: "id", DataType: "INTEGER", PrimaryKey: true},
				{Name: "customer_id", DataType: "INTEGER"},
			},
		},
	}}
}

func setup(t *testing.T) (*engine.Engine, *httptest.Server) {
	t.Helper()
	eng, err := engine.New(engine.Config{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	eng.SetSchema(shopFixture().Cache(), "postgres")

	srv := NewServer(Config{Engine: eng, Version: "test", Logger: testutil.NewTestLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return eng, ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func get(t *testing.T, ts *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func at(offset int) *int { return &offset }

func TestRequest_Offset(t *testing.T) {
	text := "SELECT id\nFROM orders"
	tests := []struct {
		name string
		req  Request
		want int
	}{
		{"default is end of text", Request{Text: text}, len(text)},
		{"explicit offset", Request{Text: text, Offset: at(7)}, 7},
		{"offset clamps", Request{Text: text, Offset: at(99)}, len(text)},
		{"negative offset clamps", Request{Text: text, Offset: at(-3)}, 0},
		{"line and character", Request{Text: text, Line: at(1), Character: 5}, 15},
		{"offset wins over line", Request{Text: text, Offset: at(2), Line: at(1)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.offset())
		})
	}
}

func TestHealthAndStatus(t *testing.T) {
	_, ts := setup(t)

	code, body := get(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	code, body = get(t, ts, "/api/status")
	require.Equal(t, http.StatusOK, code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "test", st.Version)
	assert.Equal(t, "postgres", st.Dialect)
	assert.False(t, st.Loading)
	assert.Equal(t, 2, st.Stats.Tables)
	assert.Equal(t, 4, st.Stats.Columns)
}

func TestDialects(t *testing.T) {
	_, ts := setup(t)

	code, body := get(t, ts, "/api/dialects")
	require.Equal(t, http.StatusOK, code)
	var out []DialectInfo
	require.NoError(t, json.Unmarshal(body, &out))

	var active []string
	var names []string
	for _, d := range out {
		names = append(names, d.Name)
		if d.Active {
			active = append(active, d.Name)
		}
	}
	assert.Subset(t, names, []string{"generic", "keyvalue", "mysql", "postgres", "sqlite", "sqlserver"})
	assert.Equal(t, []string{"postgres"}, active)
}

func TestSchema(t *testing.T) {
	_, ts := setup(t)

	code, body := get(t, ts, "/api/schema")
	require.Equal(t, http.StatusOK, code)
	var f schema.Fixture
	require.NoError(t, json.Unmarshal(body, &f))
	require.Len(t, f.Tables, 2)
	assert.Equal(t, "customers", f.Tables[0].Name)
	assert.Len(t, f.Tables[1].Columns, 2)
}

func TestComplete(t *testing.T) {
	_, ts := setup(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"byte offset", Request{Text: "SELECT * FROM ord", Offset: at(17), Manual: true}},
		{"line and character", Request{Text: "SELECT *\nFROM ord", Line: at(1), Character: 8, Manual: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, ts, "/api/complete", tt.req)
			require.Equal(t, http.StatusOK, code)
			var resp CompletionResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.False(t, resp.Loading)
			require.NotEmpty(t, resp.Items)
			assert.Equal(t, "orders", resp.Items[0].Label)
		})
	}
}

func TestHover(t *testing.T) {
	_, ts := setup(t)

	code, body := post(t, ts, "/api/hover", Request{Text: "SELECT id FROM orders", Offset: at(17)})
	require.Equal(t, http.StatusOK, code)
	var h hover.Hover
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, core.KindTable, h.Kind)
	assert.Contains(t, h.Markdown, "customer_id")

	code, body = post(t, ts, "/api/hover", Request{Text: "SELECT zzz", Offset: at(8)})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", strings.TrimSpace(string(body)))
}

func TestDefinitionAndReferences(t *testing.T) {
	_, ts := setup(t)

	code, body := post(t, ts, "/api/definition", Request{Text: "SELECT email FROM customers", Offset: at(8)})
	require.Equal(t, http.StatusOK, code)
	var loc refactor.Location
	require.NoError(t, json.Unmarshal(body, &loc))
	require.NotNil(t, loc.Object)
	assert.Equal(t, core.KindColumn, loc.Object.Kind)
	assert.Equal(t, "customers", loc.Object.Table)

	code, body = post(t, ts, "/api/references", Request{Text: "SELECT o.id FROM orders o", Offset: at(7)})
	require.Equal(t, http.StatusOK, code)
	var refs []refactor.Location
	require.NoError(t, json.Unmarshal(body, &refs))
	assert.Len(t, refs, 2)

	code, body = post(t, ts, "/api/references", Request{Text: "", Offset: at(0)})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestRename(t *testing.T) {
	_, ts := setup(t)
	text := "SELECT o.id FROM orders o"

	code, body := post(t, ts, "/api/rename", Request{Text: text, Offset: at(7), NewName: "ord"})
	require.Equal(t, http.StatusOK, code)
	var edits []refactor.TextEdit
	require.NoError(t, json.Unmarshal(body, &edits))
	require.Len(t, edits, 2)
	assert.Equal(t, "ord", edits[0].NewText)

	code, body = post(t, ts, "/api/rename", Request{Text: text, Offset: at(7), NewName: "select"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, string(body), "not a valid identifier")
}

func TestValidate(t *testing.T) {
	_, ts := setup(t)

	code, body := post(t, ts, "/api/validate", Request{Text: "SELECT id FROM ordrs"})
	require.Equal(t, http.StatusOK, code)
	var diags []diagnostic.Diagnostic
	require.NoError(t, json.Unmarshal(body, &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, "SQL020", diags[0].Code)
	assert.Equal(t, core.SeverityWarning, diags[0].Severity)

	code, body = post(t, ts, "/api/validate", Request{Text: "SELECT id FROM orders WHERE id = 1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestSignature(t *testing.T) {
	_, ts := setup(t)

	code, body := post(t, ts, "/api/signature", Request{Text: "SELECT LOWER("})
	require.Equal(t, http.StatusOK, code)
	var help refactor.SignatureHelp
	require.NoError(t, json.Unmarshal(body, &help))
	require.NotEmpty(t, help.Signatures)
	assert.Equal(t, "LOWER(string)", help.Signatures[0].Label)
}

func TestBadRequest(t *testing.T) {
	_, ts := setup(t)

	code, body := post(t, ts, "/api/complete", map[string]any{"txt": "SELECT"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), "invalid request body")
}

func TestRefresh(t *testing.T) {
	t.Run("without connection", func(t *testing.T) {
		_, ts := setup(t)
		code, body := post(t, ts, "/api/schema/refresh", nil)
		assert.Equal(t, http.StatusConflict, code)
		assert.Contains(t, string(body), engine.ErrNotConnected.Error())
	})

	t.Run("with fixture connection", func(t *testing.T) {
		eng, ts := setup(t)
		svc := schema.FixtureService{Fixture: shopFixture()}
		res := <-eng.SetConnection(uuid.New(), nopConn{}, svc, "sqlite")
		require.NoError(t, res.Err)

		code, body := post(t, ts, "/api/schema/refresh?wait=true", nil)
		require.Equal(t, http.StatusOK, code)
		var out struct {
			Applied bool         `json:"applied"`
			Stats   schema.Stats `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		assert.True(t, out.Applied)
		assert.Equal(t, 2, out.Stats.Tables)
	})
}

func TestEvents(t *testing.T) {
	eng, ts := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	next := func() SchemaEvent {
		t.Helper()
		var ev SchemaEvent
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				return ev
			}
		}
	}

	first := next()
	assert.Equal(t, "postgres", first.Dialect)
	assert.Equal(t, 2, first.Stats.Tables)

	eng.SetSchema(schema.Empty(), "sqlite")
	second := next()
	assert.Equal(t, "sqlite", second.Dialect)
	assert.Equal(t, 0, second.Stats.Tables)
}

func TestServeListener_Shutdown(t *testing.T) {
	eng, err := engine.New(engine.Config{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	srv := NewServer(Config{Engine: eng, Logger: testutil.NewTestLogger(t)})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
