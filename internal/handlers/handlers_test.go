package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/borderdesk/visatrack/internal/domain"
	"github.com/borderdesk/visatrack/internal/service"
	"github.com/borderdesk/visatrack/pkg/auth"
	"github.com/borderdesk/visatrack/pkg/config"
)

// ---------- Mocks ----------

type mockTouristService struct {
	tourists map[int64]*domain.Tourist
	stats    domain.DashboardStats
	sweeps   int
}

func newMockTouristService() *mockTouristService {
	return &mockTouristService{tourists: make(map[int64]*domain.Tourist)}
}

func (m *mockTouristService) AddTourist(_ context.Context, req *domain.CreateTouristRequest, _ time.Time) (*domain.Tourist, error) {
	id := int64(len(m.tourists) + 1)
	t := &domain.Tourist{
		ID:                 id,
		FullName:           req.FullName,
		Nationality:        req.Nationality,
		PassportNumber:     req.PassportNumber,
		VisaNumber:         req.VisaNumber,
		VisaType:           req.VisaType,
		VisaExpirationDate: req.VisaExpirationDate,
		DateOfEntry:        req.DateOfEntry,
		Email:              req.Email,
		Status:             domain.StatusActive,
	}
	m.tourists[id] = t
	return t, nil
}

func (m *mockTouristService) GetTourist(_ context.Context, id int64, _ time.Time) (*domain.Tourist, error) {
	t, ok := m.tourists[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return t, nil
}

func (m *mockTouristService) ListTourists(_ context.Context, _, _ int, status *domain.VisaStatus, _ string, _ time.Time) ([]domain.Tourist, error) {
	var out []domain.Tourist
	for _, t := range m.tourists {
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTouristService) FindByPassport(_ context.Context, passportNumber string, _ time.Time) (*domain.Tourist, error) {
	for _, t := range m.tourists {
		if t.PassportNumber == passportNumber {
			return t, nil
		}
	}
	return nil, service.ErrNotFound
}

func (m *mockTouristService) SendReminder(_ context.Context, id int64, _ time.Time) (string, error) {
	t, ok := m.tourists[id]
	if !ok {
		return "", service.ErrNotFound
	}
	return "Reminder sent to " + t.FullName, nil
}

func (m *mockTouristService) RecordExit(_ context.Context, id int64, exitDate time.Time, _ *string) (*domain.Tourist, error) {
	t, ok := m.tourists[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	t.ExitDate = &exitDate
	t.Status = domain.StatusLeft
	return t, nil
}

func (m *mockTouristService) RecordRenewal(_ context.Context, id int64, renewalDate, newExpirationDate time.Time, _ *string) (*domain.Tourist, error) {
	t, ok := m.tourists[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	t.RenewalDate = &renewalDate
	t.VisaExpirationDate = newExpirationDate
	t.Status = domain.StatusRenewed
	return t, nil
}

func (m *mockTouristService) DashboardStats(_ context.Context, _ time.Time) (*domain.DashboardStats, error) {
	return &m.stats, nil
}

func (m *mockTouristService) Sweep(_ context.Context, _ time.Time) (*service.SweepResult, error) {
	m.sweeps++
	return &service.SweepResult{Scanned: len(m.tourists)}, nil
}

type mockOfficerRepo struct {
	nextID   int64
	byEmail  map[string]*domain.Officer
	officers map[int64]*domain.Officer
}

func newMockOfficerRepo() *mockOfficerRepo {
	return &mockOfficerRepo{
		nextID:   1,
		byEmail:  make(map[string]*domain.Officer),
		officers: make(map[int64]*domain.Officer),
	}
}

func (m *mockOfficerRepo) Create(_ context.Context, email, passwordHash, name, role string) (*domain.Officer, error) {
	o := &domain.Officer{
		ID:           m.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.byEmail[email] = o
	m.officers[o.ID] = o
	return o, nil
}

func (m *mockOfficerRepo) FindByEmail(_ context.Context, email string) (*domain.Officer, error) {
	return m.byEmail[email], nil
}

func (m *mockOfficerRepo) FindByID(_ context.Context, id int64) (*domain.Officer, error) {
	return m.officers[id], nil
}

// ---------- Harness ----------

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Hour,
		},
	}
}

func newTestServer(svc service.TouristService, officers *mockOfficerRepo) *httptest.Server {
	h := New(svc, officers, testConfig())

	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.With(h.RequireJWT("officer")).Get("/auth/me", h.Me)
	r.Route("/tourists", func(r chi.Router) {
		r.Use(h.RequireJWT("officer"))
		r.Post("/", h.CreateTourist)
		r.Get("/", h.ListTourists)
		r.Get("/{id}", h.GetTourist)
		r.Post("/{id}/reminder", h.SendReminder)
		r.Post("/{id}/exit", h.RecordExit)
		r.Post("/{id}/renewal", h.RecordRenewal)
	})
	r.With(h.RequireJWT("officer")).Get("/dashboard/stats", h.DashboardStats)
	r.With(h.RequireJWT("admin")).Post("/admin/sweep", h.TriggerSweep)

	return httptest.NewServer(r)
}

func officerToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.NewAccessToken(1, "officer@border.local", role, "test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatal(err)
	}
}

// ---------- Auth gate ----------

func TestTourists_RequiresAuth(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/tourists", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestTourists_RejectsGarbageToken(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/tourists", "not-a-jwt", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminSweep_ForbiddenForOfficer(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/admin/sweep", officerToken(t, "officer"), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestAdminSweep_AllowedForAdmin(t *testing.T) {
	svc := newMockTouristService()
	srv := newTestServer(svc, newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/admin/sweep", officerToken(t, "admin"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result service.SweepResult
	decodeBody(t, resp, &result)
	if svc.sweeps != 1 {
		t.Fatalf("sweeps = %d, want 1", svc.sweeps)
	}
}

// ---------- Registration and login ----------

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "amina@border.local", "password": "hunter2hunter2", "name": "Amina Diallo",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "amina@border.local", "password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, resp, &out)
	if out.AccessToken == "" {
		t.Fatal("expected access token")
	}

	claims, err := auth.Parse(out.AccessToken, "test-secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != "officer" {
		t.Fatalf("role = %q, want officer", claims.Role)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "amina@border.local", "password": "hunter2hunter2", "name": "Amina Diallo",
	})
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "amina@border.local", "password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMe(t *testing.T) {
	officers := newMockOfficerRepo()
	srv := newTestServer(newMockTouristService(), officers)
	defer srv.Close()

	if _, err := officers.Create(context.Background(), "amina@border.local", "x", "Amina Diallo", "officer"); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, srv, http.MethodGet, "/auth/me", officerToken(t, "officer"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out domain.Officer
	decodeBody(t, resp, &out)
	if out.Email != "amina@border.local" {
		t.Fatalf("email = %q, want amina@border.local", out.Email)
	}
}

func TestMe_UnknownAccount(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	// Valid token, but no officer with that id exists.
	resp := doRequest(t, srv, http.MethodGet, "/auth/me", officerToken(t, "officer"), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	body := map[string]string{"email": "amina@border.local", "password": "hunter2hunter2", "name": "Amina Diallo"}
	resp := doRequest(t, srv, http.MethodPost, "/auth/register", "", body)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/auth/register", "", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// ---------- Tourist records ----------

func validCreateBody() map[string]any {
	return map[string]any{
		"full_name":            "Aiko Tanaka",
		"nationality":          "Japan",
		"passport_number":      "TK1234567",
		"visa_number":          "V-2024-001",
		"visa_type":            "Tourist",
		"visa_expiration_date": "2024-09-01",
		"date_of_entry":        "2024-06-01",
		"duration_of_stay":     90,
		"email":                "aiko@example.com",
	}
}

func TestCreateTourist(t *testing.T) {
	svc := newMockTouristService()
	srv := newTestServer(svc, newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/tourists", officerToken(t, "officer"), validCreateBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created domain.Tourist
	decodeBody(t, resp, &created)
	if created.ID == 0 || created.PassportNumber != "TK1234567" {
		t.Fatalf("unexpected record: %+v", created)
	}
}

func TestCreateTourist_MissingFields(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	body := validCreateBody()
	delete(body, "passport_number")

	resp := doRequest(t, srv, http.MethodPost, "/tourists", officerToken(t, "officer"), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateTourist_BadDate(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	body := validCreateBody()
	body["visa_expiration_date"] = "01/09/2024"

	resp := doRequest(t, srv, http.MethodPost, "/tourists", officerToken(t, "officer"), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetTourist_NotFound(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/tourists/99", officerToken(t, "officer"), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListTourists_UnknownPassportReturnsEmptyArray(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/tourists?passport_number=ZZ000", officerToken(t, "officer"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out []domain.Tourist
	decodeBody(t, resp, &out)
	if len(out) != 0 {
		t.Fatalf("len = %d, want 0", len(out))
	}
}

func TestListTourists_InvalidStatus(t *testing.T) {
	srv := newTestServer(newMockTouristService(), newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/tourists?status=Overstayed", officerToken(t, "officer"), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSendReminder(t *testing.T) {
	svc := newMockTouristService()
	srv := newTestServer(svc, newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/tourists", officerToken(t, "officer"), validCreateBody())
	var created domain.Tourist
	decodeBody(t, resp, &created)

	resp = doRequest(t, srv, http.MethodPost, "/tourists/1/reminder", officerToken(t, "officer"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &out)
	if !out.Success || out.Message == "" {
		t.Fatalf("body = %+v, want success with message", out)
	}
}

func TestRecordExit(t *testing.T) {
	svc := newMockTouristService()
	srv := newTestServer(svc, newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/tourists", officerToken(t, "officer"), validCreateBody())
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/tourists/1/exit", officerToken(t, "officer"), map[string]any{
		"exit_date": "2024-08-15",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out domain.Tourist
	decodeBody(t, resp, &out)
	if out.Status != domain.StatusLeft || out.ExitDate == nil {
		t.Fatalf("record = %+v, want Left with exit date", out)
	}
}

func TestRecordRenewal(t *testing.T) {
	svc := newMockTouristService()
	srv := newTestServer(svc, newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/tourists", officerToken(t, "officer"), validCreateBody())
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/tourists/1/renewal", officerToken(t, "officer"), map[string]any{
		"renewal_date":        "2024-08-20",
		"new_expiration_date": "2024-12-01",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out domain.Tourist
	decodeBody(t, resp, &out)
	if out.Status != domain.StatusRenewed {
		t.Fatalf("status = %q, want %q", out.Status, domain.StatusRenewed)
	}
}

func TestDashboardStats(t *testing.T) {
	svc := newMockTouristService()
	svc.stats = domain.DashboardStats{Total: 5, Active: 2, Expired: 1, AlertSent: 1, Left: 1}
	srv := newTestServer(svc, newMockOfficerRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/dashboard/stats", officerToken(t, "officer"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out domain.DashboardStats
	decodeBody(t, resp, &out)
	if out != svc.stats {
		t.Fatalf("stats = %+v, want %+v", out, svc.stats)
	}
}
