package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"hrportal/internal/app/server"
	"hrportal/internal/domain/auth"
	"hrportal/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 10000,
		SessionTTL:         time.Hour,
		CORSOrigins:        []string{"*"},
		MigrationsDir:      "../../../../migrations",
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	app, err := server.New(context.Background(), testConfig(dbURL))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

// nextMonday returns the first Monday at least seven days out, so the
// three-day range used below is always in the future and entirely on
// working days.
func nextMonday() time.Time {
	day := time.Now().UTC().AddDate(0, 0, 7)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func createEmployee(t *testing.T, app *server.App, email, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var id string
	err = app.Pool.QueryRow(context.Background(), `
    INSERT INTO users (email, full_name, employee_no, password_hash, role_id, status)
    SELECT $1, 'Journey Employee', 'EMP-100', $2, r.id, 'active'
    FROM roles r WHERE r.name = $3
    RETURNING id
  `, email, hash, auth.RoleEmployee).Scan(&id)
	if err != nil {
		t.Fatalf("create employee fixture: %v", err)
	}
	return id
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, payload any) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response from %s %s: %v", method, url, err)
	}
	return resp.StatusCode, env
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	status, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login for %s failed with status %d", email, status)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login response missing token: %v", err)
	}
	return data.Token
}

func leaveTypeID(t *testing.T, client *http.Client, baseURL, token, code string) string {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/leave/types", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list leave types failed with status %d", status)
	}
	var types []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &types); err != nil {
		t.Fatalf("decode leave types: %v", err)
	}
	for _, lt := range types {
		if lt.Code == code {
			return lt.ID
		}
	}
	t.Fatalf("leave type %s not seeded", code)
	return ""
}

func employeeBalance(t *testing.T, client *http.Client, baseURL, token, typeID string) (pending, used, available float64) {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/leave/balances", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list balances failed with status %d", status)
	}
	var balances []struct {
		LeaveTypeID   string  `json:"leaveTypeId"`
		PendingDays   float64 `json:"pendingDays"`
		UsedDays      float64 `json:"usedDays"`
		AvailableDays float64 `json:"availableDays"`
	}
	if err := json.Unmarshal(env.Data, &balances); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	for _, b := range balances {
		if b.LeaveTypeID == typeID {
			return b.PendingDays, b.UsedDays, b.AvailableDays
		}
	}
	t.Fatalf("no balance row for leave type %s", typeID)
	return 0, 0, 0
}

func TestLeaveRequestJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	cfg := app.Config

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	email := fmt.Sprintf("journey-%d@example.com", time.Now().UnixNano())
	createEmployee(t, app, email, "Secret123!")
	employeeToken := login(t, client, ts.URL, email, "Secret123!")

	year := nextMonday().Year()
	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]int{"year": year})
	if status != http.StatusOK {
		t.Fatalf("initialize balances failed with status %d", status)
	}
	var summary struct {
		Created int `json:"created"`
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode init summary: %v", err)
	}
	if summary.Created == 0 {
		t.Fatal("expected initializer to create balance rows")
	}

	// A second run must be a no-op, not an error.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]int{"year": year})
	if status != http.StatusOK {
		t.Fatalf("repeat initialize failed with status %d", status)
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode repeat init summary: %v", err)
	}
	if summary.Created != 0 {
		t.Fatalf("expected idempotent rerun, got %d new rows", summary.Created)
	}

	typeID := leaveTypeID(t, client, ts.URL, employeeToken, "annual")

	monday := nextMonday()
	wednesday := monday.AddDate(0, 0, 2)
	submit := map[string]string{
		"leaveTypeId": typeID,
		"startDate":   monday.Format("2006-01-02"),
		"endDate":     wednesday.Format("2006-01-02"),
		"reason":      "family visit",
	}

	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, submit)
	if status != http.StatusCreated {
		t.Fatalf("submit failed with status %d", status)
	}
	var request struct {
		ID        string  `json:"id"`
		Status    string  `json:"status"`
		TotalDays float64 `json:"totalDays"`
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if request.Status != "pending" || request.TotalDays != 3 {
		t.Fatalf("expected pending request for 3 days, got %s/%v", request.Status, request.TotalDays)
	}

	pending, used, _ := employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 3 || used != 0 {
		t.Fatalf("expected pending=3 used=0 after submit, got pending=%v used=%v", pending, used)
	}

	// An overlapping submission from the same user must be refused.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   wednesday.Format("2006-01-02"),
		"endDate":     wednesday.AddDate(0, 0, 1).Format("2006-01-02"),
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping request, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "overlapping_request" {
		t.Fatalf("expected overlapping_request error, got %+v", env.Error)
	}

	// Rejection without comments is refused before anything changes.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/reject", adminToken, map[string]string{"comments": ""})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for reject without comments, got %d", status)
	}

	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/approve", adminToken, map[string]string{"comments": "enjoy"})
	if status != http.StatusOK {
		t.Fatalf("approve failed with status %d", status)
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode approved request: %v", err)
	}
	if request.Status != "approved" {
		t.Fatalf("expected approved, got %s", request.Status)
	}

	pending, used, _ = employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 0 || used != 3 {
		t.Fatalf("expected pending=0 used=3 after approval, got pending=%v used=%v", pending, used)
	}

	// A second decision on the same request must observe the terminal state.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/reject", adminToken, map[string]string{"comments": "changed my mind"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for decision on processed request, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "already_processed" {
		t.Fatalf("expected already_processed error, got %+v", env.Error)
	}
}

func TestCancelReleasesPendingDays(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	cfg := app.Config

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	email := fmt.Sprintf("cancel-%d@example.com", time.Now().UnixNano())
	createEmployee(t, app, email, "Secret123!")
	employeeToken := login(t, client, ts.URL, email, "Secret123!")

	year := nextMonday().Year()
	if status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]int{"year": year}); status != http.StatusOK {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	typeID := leaveTypeID(t, client, ts.URL, employeeToken, "sick")
	monday := nextMonday()

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   monday.Format("2006-01-02"),
		"endDate":     monday.AddDate(0, 0, 1).Format("2006-01-02"),
	})
	if status != http.StatusCreated {
		t.Fatalf("submit failed with status %d", status)
	}
	var request struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode request: %v", err)
	}

	// Only the submitter may cancel.
	otherEmail := fmt.Sprintf("other-%d@example.com", time.Now().UnixNano())
	createEmployee(t, app, otherEmail, "Secret123!")
	otherToken := login(t, client, ts.URL, otherEmail, "Secret123!")
	if status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/cancel", otherToken, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign cancel, got %d", status)
	}

	if status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/cancel", employeeToken, nil); status != http.StatusOK {
		t.Fatalf("cancel failed with status %d", status)
	}

	pending, used, _ := employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 0 || used != 0 {
		t.Fatalf("expected clean balance after cancel, got pending=%v used=%v", pending, used)
	}
}

// mondayInJune returns the first Monday of June in the given year; a stable
// all-working-day anchor outside any initialized balance year.
func mondayInJune(year int) time.Time {
	day := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func TestSubmitLedgerRejections(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	cfg := app.Config

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	email := fmt.Sprintf("ledger-%d@example.com", time.Now().UnixNano())
	createEmployee(t, app, email, "Secret123!")
	employeeToken := login(t, client, ts.URL, email, "Secret123!")

	year := nextMonday().Year()
	if status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]int{"year": year}); status != http.StatusOK {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	typeID := leaveTypeID(t, client, ts.URL, employeeToken, "casual")
	monday := nextMonday()

	// Saturday through Sunday: nothing chargeable in the range.
	saturday := monday.AddDate(0, 0, 5)
	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   saturday.Format("2006-01-02"),
		"endDate":     saturday.AddDate(0, 0, 1).Format("2006-01-02"),
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for weekend-only range, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "no_working_days" {
		t.Fatalf("expected no_working_days error, got %+v", env.Error)
	}

	// Ten working days against the five-day casual allotment.
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   monday.Format("2006-01-02"),
		"endDate":     monday.AddDate(0, 0, 11).Format("2006-01-02"),
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for overdrawn request, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance error, got %+v", env.Error)
	}

	// A year nobody initialized has no allocation row at all.
	farMonday := mondayInJune(year + 1)
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   farMonday.Format("2006-01-02"),
		"endDate":     farMonday.Format("2006-01-02"),
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for unallocated year, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "no_allocation" {
		t.Fatalf("expected no_allocation error, got %+v", env.Error)
	}

	// None of the refused submissions may have reserved anything.
	pending, used, _ := employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 0 || used != 0 {
		t.Fatalf("expected untouched balance after rejections, got pending=%v used=%v", pending, used)
	}
}

func TestBalanceAggregateAcrossApproval(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	cfg := app.Config

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	email := fmt.Sprintf("aggregate-%d@example.com", time.Now().UnixNano())
	employeeID := createEmployee(t, app, email, "Secret123!")
	employeeToken := login(t, client, ts.URL, email, "Secret123!")

	year := nextMonday().Year()
	if status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]int{"year": year}); status != http.StatusOK {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	typeID := leaveTypeID(t, client, ts.URL, employeeToken, "annual")

	// Shape a mid-year aggregate: 10 allotted, 2 already used, 1 pending.
	if _, err := app.Pool.Exec(context.Background(), `
    UPDATE leave_balances SET total_days = 10, used_days = 2, pending_days = 1
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
  `, employeeID, typeID, year); err != nil {
		t.Fatalf("shape balance fixture: %v", err)
	}

	monday := nextMonday()
	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   monday.Format("2006-01-02"),
		"endDate":     monday.AddDate(0, 0, 2).Format("2006-01-02"),
	})
	if status != http.StatusCreated {
		t.Fatalf("submit failed with status %d", status)
	}
	var request struct {
		ID         string     `json:"id"`
		Status     string     `json:"status"`
		ApprovedAt *time.Time `json:"approvedAt"`
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode request: %v", err)
	}

	pending, used, available := employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 4 || used != 2 || available != 4 {
		t.Fatalf("expected pending=4 used=2 available=4 after submit, got %v/%v/%v", pending, used, available)
	}

	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/approve", adminToken, map[string]string{"comments": "ok"})
	if status != http.StatusOK {
		t.Fatalf("approve failed with status %d", status)
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode approved request: %v", err)
	}
	if request.Status != "approved" || request.ApprovedAt == nil {
		t.Fatalf("expected approved request with approval timestamp, got %s/%v", request.Status, request.ApprovedAt)
	}

	// Approval shifts days between buckets without changing what is available.
	pending, used, available = employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 1 || used != 5 || available != 4 {
		t.Fatalf("expected pending=1 used=5 available=4 after approval, got %v/%v/%v", pending, used, available)
	}

	// A rejected request keeps its approval timestamp empty.
	nextWeek := monday.AddDate(0, 0, 7)
	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   nextWeek.Format("2006-01-02"),
		"endDate":     nextWeek.Format("2006-01-02"),
	})
	if status != http.StatusCreated {
		t.Fatalf("second submit failed with status %d", status)
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode second request: %v", err)
	}

	status, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/reject", adminToken, map[string]string{"comments": "coverage gap that week"})
	if status != http.StatusOK {
		t.Fatalf("reject failed with status %d", status)
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode rejected request: %v", err)
	}
	if request.Status != "rejected" || request.ApprovedAt != nil {
		t.Fatalf("expected rejected request without approval timestamp, got %s/%v", request.Status, request.ApprovedAt)
	}

	pending, used, available = employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 1 || used != 5 || available != 4 {
		t.Fatalf("expected pending=1 used=5 available=4 after rejection, got %v/%v/%v", pending, used, available)
	}
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	cfg := app.Config

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	email := fmt.Sprintf("race-%d@example.com", time.Now().UnixNano())
	createEmployee(t, app, email, "Secret123!")
	employeeToken := login(t, client, ts.URL, email, "Secret123!")

	year := nextMonday().Year()
	if status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/balances/initialize", adminToken, map[string]int{"year": year}); status != http.StatusOK {
		t.Fatalf("initialize balances failed with status %d", status)
	}

	typeID := leaveTypeID(t, client, ts.URL, employeeToken, "annual")
	monday := nextMonday()

	status, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]string{
		"leaveTypeId": typeID,
		"startDate":   monday.Format("2006-01-02"),
		"endDate":     monday.AddDate(0, 0, 2).Format("2006-01-02"),
	})
	if status != http.StatusCreated {
		t.Fatalf("submit failed with status %d", status)
	}
	var request struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &request); err != nil {
		t.Fatalf("decode request: %v", err)
	}

	decide := func(action, comments string) (int, error) {
		raw, _ := json.Marshal(map[string]string{"comments": comments})
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/leave/requests/"+request.ID+"/"+action, bytes.NewReader(raw))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+adminToken)
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	statuses := make([]int, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		statuses[0], errs[0] = decide("approve", "ok")
	}()
	go func() {
		defer wg.Done()
		statuses[1], errs[1] = decide("reject", "no")
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("concurrent decision request failed: %v", err)
		}
	}

	winners := 0
	for _, code := range statuses {
		switch code {
		case http.StatusOK:
			winners++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d from concurrent decision", code)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning decision, got %d (statuses %v)", winners, statuses)
	}

	// Whichever side won, pending days must be fully drained.
	pending, _, _ := employeeBalance(t, client, ts.URL, employeeToken, typeID)
	if pending != 0 {
		t.Fatalf("expected pending=0 after race, got %v", pending)
	}
}
