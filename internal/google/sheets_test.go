package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"autoservice/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return mux, newWithService(srv, "bookings_tid")
}

func testBooking(id string) *models.Booking {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	return &models.Booking{
		ID:          id,
		PhoneNumber: "+1 555",
		BookingDate: "2024-03-05",
		BookingTime: "09:00",
		CarPlate:    "A123BC",
		ServiceType: "oil_change",
		Price:       50,
		Status:      models.StatusPending,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func TestBookingRowValues(t *testing.T) {
	b := testBooking("b-1")
	b.CarVIN = "VIN1"
	b.AdminNotes = "ok"

	row := bookingRowValues(b)
	if len(row) != len(bookingHeaders) {
		t.Fatalf("expected %d cells, got %d", len(bookingHeaders), len(row))
	}
	if row[0] != "b-1" || row[1] != "2024-03-05" || row[2] != "09:00" {
		t.Errorf("unexpected leading cells: %v", row[:3])
	}
	if row[7] != 50.0 || row[8] != models.StatusPending {
		t.Errorf("unexpected price/status: %v %v", row[7], row[8])
	}
	if row[10] != "ok" || row[12] != "2024-03-01 10:30:00" {
		t.Errorf("unexpected trailing cells: %v", row[10:])
	}
}

func TestParseRowFromRange(t *testing.T) {
	tests := []struct {
		in   string
		row  int
		okay bool
	}{
		{"Bookings!A10:M10", 10, true},
		{"'Bookings'!B7", 7, true},
		{"Bookings", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		row, ok := parseRowFromRange(tt.in)
		if row != tt.row || ok != tt.okay {
			t.Errorf("parseRowFromRange(%q) = %d, %v; want %d, %v", tt.in, row, ok, tt.row, tt.okay)
		}
	}
}

func TestCacheOperations(t *testing.T) {
	s := newWithService(nil, "x")
	s.setCachedRow("a", 3)
	if row, ok := s.getCachedRow("a"); !ok || row != 3 {
		t.Fatalf("expected cached row 3, got %d %v", row, ok)
	}
	s.ClearCache()
	if _, ok := s.getCachedRow("a"); ok {
		t.Fatalf("expected cache to be empty")
	}
}

func TestServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"client_email":"bot@project.iam.gserviceaccount.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	email, err := ServiceAccountEmail(path)
	if err != nil {
		t.Fatalf("ServiceAccountEmail: %v", err)
	}
	if email != "bot@project.iam.gserviceaccount.com" {
		t.Errorf("unexpected email %q", email)
	}
	if _, err := ServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"b-1"}, {}, {"b-2"}},
		})
	})
	if err := s.WarmUpCache(context.Background()); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow("b-1"); !ok || row != 2 {
		t.Errorf("expected row 2 for b-1, got %d", row)
	}
	if row, ok := s.getCachedRow("b-2"); !ok || row != 4 {
		t.Errorf("expected row 4 for b-2, got %d", row)
	}
	if _, ok := s.getCachedRow("ID"); ok {
		t.Errorf("header must not be cached")
	}
}

func TestSheetsService_UpsertBooking_Appends(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:M10"},
		})
	})

	if err := s.UpsertBooking(context.Background(), testBooking("b-9")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow("b-9"); row != 10 {
		t.Errorf("expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Updates(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-1", 2)

	var calls int32
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:M2", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.Values) != 1 || body.Values[0][0] != "b-1" {
			t.Errorf("unexpected values: %v", body.Values)
		}
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.UpsertBooking(context.Background(), testBooking("b-1")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected one update call, got %d", calls)
	}
}

func TestSheetsService_UpdateBookingStatus(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-1", 5)

	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		var req sheets.BatchUpdateValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(req.Data) != 2 || req.Data[0].Range != "Bookings!I5" || req.Data[1].Range != "Bookings!M5" {
			t.Errorf("unexpected ranges: %+v", req.Data)
		}
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateValuesResponse{})
	})

	b := testBooking("b-1")
	b.Status = models.StatusApproved
	if err := s.UpdateBookingStatus(context.Background(), b); err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}
}

func TestSheetsService_FindBookingRow_NotFound(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"other"}}})
	})

	_, err := s.FindBookingRow(context.Background(), "b-1")
	if err != ErrRowNotFound {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
	if _, err := s.FindBookingRow(context.Background(), ""); err == nil {
		t.Errorf("expected error for empty id")
	}
}

func TestSheetsService_ReplaceBookingsSheet(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:M:clear", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		var body sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Values) != 3 {
			t.Errorf("expected header + 2 rows, got %d", len(body.Values))
		}
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	bookings := []models.Booking{*testBooking("b-1"), *testBooking("b-2")}
	if err := s.ReplaceBookingsSheet(context.Background(), bookings); err != nil {
		t.Fatalf("ReplaceBookingsSheet failed: %v", err)
	}
	if row, _ := s.getCachedRow("b-2"); row != 3 {
		t.Errorf("expected b-2 at row 3, got %d", row)
	}
}
