package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	"fintrack/internal/provision"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T, opts Options) testEnv {
	t.Helper()
	s := memory.New()
	engine, err := provision.NewEngine(s, provision.V2)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Now == nil {
		opts.Now = clock
	}
	if opts.RateLimitRPM == 0 {
		opts.RateLimitRPM = 1000
	}
	deps := Deps{
		Provisioner:   engine,
		Ledger:        services.NewTransactionService(s, services.WithClock(clock)),
		Preferences:   services.NewPreferenceService(s, "EUR"),
		Reports:       services.NewReportService(s, report.Aggregator{Now: clock}),
		Currencies:    s,
		Notifications: s,
		Ready:         func(context.Context) error { return nil },
	}
	srv := NewServer(":0", deps, opts)
	t.Cleanup(srv.limiter.Stop)
	return testEnv{srv: srv, store: s}
}

func (e testEnv) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// signup creates the preference and provisions u1.
func (e testEnv) signup(t *testing.T) provision.Result {
	t.Helper()
	if rr := e.do(t, http.MethodPost, "/api/preferences", "u1", ""); rr.Code != http.StatusCreated {
		t.Fatalf("create preference: %d %s", rr.Code, rr.Body.String())
	}
	rr := e.do(t, http.MethodPost, "/api/session/provision", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("provision: %d %s", rr.Code, rr.Body.String())
	}
	var res provision.Result
	decode(t, rr, &res)
	return res
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func accountID(t *testing.T, accounts []core.Account, name string) string {
	t.Helper()
	for _, a := range accounts {
		if a.Name == name {
			return a.ID
		}
	}
	t.Fatalf("no account %q", name)
	return ""
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}
}

func TestReady_BackendDown(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.srv.deps.Ready = func(context.Context) error { return errors.New("connection refused") }

	rr := env.do(t, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, rr, &body)
	if body.Status != "not_ready" || body.Checks["backend"] != "failed" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAPI_RequiresUser(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.do(t, http.MethodGet, "/api/report", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
	var body errorBody
	decode(t, rr, &body)
	if body.Code != "unauthenticated" || body.RequestID == "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestProvision_Flow(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.do(t, http.MethodPost, "/api/session/provision", "u1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("provision without preference: status=%d", rr.Code)
	}

	res := env.signup(t)
	if !res.Stats.Migrated || len(res.Accounts) != len(provision.V2.Accounts) {
		t.Fatalf("first run: %+v", res.Stats)
	}
	if res.Preference.DefaultIncomeAccountID == "" {
		t.Fatal("income pointer not set")
	}

	rr = env.do(t, http.MethodPost, "/api/session/provision", "u1", "")
	var again provision.Result
	decode(t, rr, &again)
	if again.Stats.Writes() != 0 {
		t.Fatalf("second run wrote: %+v", again.Stats)
	}

	rr = env.do(t, http.MethodPost, "/api/preferences", "u1", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate preference: status=%d", rr.Code)
	}
}

func TestCreateTransaction_AndReport(t *testing.T) {
	env := newTestEnv(t, Options{})
	res := env.signup(t)

	rr := env.do(t, http.MethodPost, "/api/transactions", "u1",
		`{"amount":"100","description":"Salary","entry_type":"INCOME","transaction_date":"2026-03-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var created core.Transaction
	decode(t, rr, &created)
	if created.ToAccountID != res.Preference.DefaultIncomeAccountID {
		t.Fatalf("to account = %q, want default income", created.ToAccountID)
	}

	rr = env.do(t, http.MethodPost, "/api/transactions", "u1",
		`{"amount":"40","description":"Groceries","entry_type":"EXPENSES","transaction_date":"2026-03-12"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/report?from=2026-03-01&to=2026-03-31", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("report: %d %s", rr.Code, rr.Body.String())
	}
	var rep reportResponse
	decode(t, rr, &rep)
	if !rep.Snapshot.IncomeTotal.Equal(decimal.NewFromInt(100)) || !rep.Snapshot.ExpenseTotal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("totals: income=%s expense=%s", rep.Snapshot.IncomeTotal, rep.Snapshot.ExpenseTotal)
	}
	if !rep.Snapshot.TotalBalance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("balance = %s", rep.Snapshot.TotalBalance)
	}
	if rep.Snapshot.PeriodLabel != "March 2026" {
		t.Fatalf("label = %q", rep.Snapshot.PeriodLabel)
	}
}

func TestReport_DefaultsToCurrentMonth(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.signup(t)

	rr := env.do(t, http.MethodGet, "/api/report", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var rep reportResponse
	decode(t, rr, &rep)
	if rep.From.String() != "2026-03-01" || rep.To.String() != "2026-03-31" {
		t.Fatalf("range = %s..%s", rep.From, rep.To)
	}
}

func TestReport_RejectsBadRange(t *testing.T) {
	env := newTestEnv(t, Options{})

	cases := []string{
		"/api/report?from=yesterday",
		"/api/report?to=2026-13-01",
		"/api/report?from=2026-03-31&to=2026-03-01",
	}
	for _, path := range cases {
		if rr := env.do(t, http.MethodGet, path, "u1", ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d", path, rr.Code)
		}
	}
}

func TestCreateTransaction_Rejects(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.signup(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed json", `{"amount":`, http.StatusBadRequest},
		{"unknown field", `{"amount":"1","description":"x","entry_type":"INCOME","colour":"red"}`, http.StatusBadRequest},
		{"bad amount", `{"amount":"abc","description":"x","entry_type":"INCOME"}`, http.StatusBadRequest},
		{"contra not allowed", `{"amount":"1","description":"x","entry_type":"CONTRA"}`, http.StatusBadRequest},
		{"unknown account", `{"amount":"1","description":"x","entry_type":"INCOME","to_account_id":"missing"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/transactions", "u1", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestCreateTransfer(t *testing.T) {
	env := newTestEnv(t, Options{})
	res := env.signup(t)
	cash, bank := accountID(t, res.Accounts, "Cash"), accountID(t, res.Accounts, "Bank")

	rr := env.do(t, http.MethodPost, "/api/transfers", "u1",
		`{"amount":"25","transaction_date":"2026-03-11","from_account_id":"`+bank+`","to_account_id":"`+cash+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer: %d %s", rr.Code, rr.Body.String())
	}
	var out services.TransferResult
	decode(t, rr, &out)
	if out.Contra.EntryType != core.EntryContra || len(out.Legs) != 2 {
		t.Fatalf("result = %+v", out)
	}

	rr = env.do(t, http.MethodPost, "/api/transfers", "u1",
		`{"amount":"25","from_account_id":"`+bank+`","to_account_id":"`+bank+`"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("same account: status=%d", rr.Code)
	}
}

type partialLedger struct{ Ledger }

func (partialLedger) CreateTransfer(context.Context, string, services.TransferInput) (services.TransferResult, error) {
	return services.TransferResult{Contra: core.Transaction{ID: "c1"}}, core.PartialFailure("create leg", errors.New("disk full"))
}

func TestCreateTransfer_PartialFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.srv.deps.Ledger = partialLedger{}

	rr := env.do(t, http.MethodPost, "/api/transfers", "u1", `{"amount":"1","from_account_id":"a","to_account_id":"b"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rr.Code)
	}
	var body transferFailure
	decode(t, rr, &body)
	if body.Partial.Contra.ID != "c1" || body.Code != "backend_error" {
		t.Fatalf("body = %+v", body)
	}
}

func TestReportExport(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.signup(t)
	env.do(t, http.MethodPost, "/api/transactions", "u1",
		`{"amount":"12.50","description":"Lunch","entry_type":"EXPENSES","transaction_date":"2026-03-05"}`)

	rr := env.do(t, http.MethodGet, "/api/report/export", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != report.XLSXContentType {
		t.Fatalf("content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "fintrack-report-2026-03-01-2026-03-31.xlsx") {
		t.Fatalf("disposition %q", cd)
	}
	f, err := excelize.OpenReader(rr.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex(report.SheetSummary); err != nil || idx < 0 {
		t.Fatalf("summary sheet missing: %d %v", idx, err)
	}
}

func TestReportCache_InvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.signup(t)

	env.do(t, http.MethodGet, "/api/report", "u1", "")
	env.do(t, http.MethodGet, "/api/report", "u1|b", "")
	from, to := report.MonthRange(fixedNow)
	key := reportKey("u1", from, to)
	if _, ok := env.srv.reports.Latest(key); !ok {
		t.Fatal("report not held after GET")
	}

	env.do(t, http.MethodPost, "/api/transactions", "u1",
		`{"amount":"5","description":"Coffee","entry_type":"EXPENSES","transaction_date":"2026-03-06"}`)
	if _, ok := env.srv.reports.Latest(key); ok {
		t.Fatal("report still held after a write")
	}
	if _, ok := env.srv.reports.Latest(reportKey("u1|b", from, to)); !ok {
		t.Error("write by u1 dropped the report of u1|b")
	}
}

func TestCurrenciesAndNotifications(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.do(t, http.MethodGet, "/api/currencies", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("currencies status=%d", rr.Code)
	}
	var cur struct {
		Currencies []core.Currency `json:"currencies"`
	}
	decode(t, rr, &cur)
	if len(cur.Currencies) == 0 {
		t.Fatal("no currencies")
	}

	if _, err := env.store.CreateNotification(context.Background(), "u1", core.Notification{Title: "Transaction created"}); err != nil {
		t.Fatal(err)
	}
	rr = env.do(t, http.MethodGet, "/api/notifications?limit=5", "u1", "")
	var notes struct {
		Notifications []core.Notification `json:"notifications"`
	}
	decode(t, rr, &notes)
	if len(notes.Notifications) != 1 || notes.Notifications[0].Title != "Transaction created" {
		t.Fatalf("notifications = %+v", notes.Notifications)
	}

	rr = env.do(t, http.MethodGet, "/api/notifications", "u2", "")
	decode(t, rr, &notes)
	if len(notes.Notifications) != 0 {
		t.Fatal("notifications leaked across owners")
	}

	if rr := env.do(t, http.MethodGet, "/api/notifications?limit=abc", "u1", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimitRPM: 2})

	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodGet, "/api/currencies", "", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/api/currencies", "", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	var body errorBody
	decode(t, rr, &body)
	if body.Code != "rate_limited" || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("body=%+v retry=%q", body, rr.Header().Get("Retry-After"))
	}

	if rr := env.do(t, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
		t.Fatal("health check rate limited")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, Options{})
	if rr := env.do(t, http.MethodGet, "/api/transactions", "u1", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{core.Validation("amount", "bad"), http.StatusBadRequest},
		{core.NotFound("account", "a1"), http.StatusNotFound},
		{core.Backend("list", errors.New("io")), http.StatusBadGateway},
		{core.PartialFailure("create leg", errors.New("io")), http.StatusBadGateway},
		{errUnauthenticated, http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(tc.err); got != tc.want {
			t.Errorf("%v: got %d want %d", tc.err, got, tc.want)
		}
	}
}
