package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"hotelbook/internal/config"
	"hotelbook/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// ErrRowNotFound is returned when a booking has no row in the mirror sheet.
var ErrRowNotFound = errors.New("booking row not found")

var bookingHeaders = []interface{}{
	"ID", "Customer ID", "Customer", "Room", "Room Type", "Check-in", "Check-out",
	"Nights", "Status", "Paid", "Origin", "Created At", "Updated At",
}

const (
	lastColumn    = "M"
	statusColumn  = "I"
	updatedColumn = "M"
)

// SheetsService mirrors bookings into one sheet of a spreadsheet, one row per booking.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zerolog.Logger
	now           func() time.Time

	cacheMu  sync.RWMutex
	rowCache map[string]int
}

func NewSheetsService(ctx context.Context, cfg config.GoogleConfig, logger *zerolog.Logger) (*SheetsService, error) {
	// Service account credentials are read from the JSON key file.
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, cfg.BookingSpreadSheetID, cfg.SheetName, logger), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string, logger *zerolog.Logger) *SheetsService {
	if sheetName == "" {
		sheetName = "Bookings"
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
		now:           time.Now,
		rowCache:      make(map[string]int),
	}
}

// ServiceAccountEmail returns client_email from a service account key file.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", fmt.Errorf("decode credentials: %w", err)
	}
	return creds.ClientEmail, nil
}

func (s *SheetsService) rangeOf(cells string) string {
	return s.sheetName + "!" + cells
}

// TestConnection reads cell A1 to confirm the sheet is reachable.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the header row.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1:"+lastColumn+"1"), &sheets.ValueRange{
		Values: [][]interface{}{bookingHeaders},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Start refreshes the row cache every SheetsCacheTTL until ctx is done.
func (s *SheetsService) Start(ctx context.Context) {
	if err := s.WarmUpCache(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Sheets cache warm-up failed")
	}

	ticker := time.NewTicker(models.SheetsCacheTTL * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.WarmUpCache(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Sheets cache refresh failed")
			}
		}
	}
}

// WarmUpCache rebuilds the row index from the ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read id column: %w", err)
	}

	cache := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if id := cellString(row); id != "" && i > 0 {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// FindBookingRow returns the 1-based row of bookingID, consulting the cache first.
func (s *SheetsService) FindBookingRow(ctx context.Context, bookingID string) (int, error) {
	if bookingID == "" {
		return 0, errors.New("booking id is required")
	}
	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	for i, row := range resp.Values {
		if cellString(row) == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, ErrRowNotFound
}

// UpsertBooking rewrites the booking's row or appends one.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return errors.New("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.appendBooking(ctx, booking)
	}
	if err != nil {
		return err
	}

	rangeData := s.rangeOf(fmt.Sprintf("A%d:%s%d", rowIdx, lastColumn, rowIdx))
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{s.bookingRow(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update booking row: %w", err)
	}
	return nil
}

func (s *SheetsService) appendBooking(ctx context.Context, booking *models.Booking) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:A"), &sheets.ValueRange{
		Values: [][]interface{}{s.bookingRow(booking)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	if resp.Updates != nil {
		if row, ok := firstRow(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

// UpdateBookingStatus rewrites the status and updated-at cells in one request.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{Range: s.rangeOf(fmt.Sprintf("%s%d", statusColumn, rowIdx)), Values: [][]interface{}{{status}}},
			{Range: s.rangeOf(fmt.Sprintf("%s%d", updatedColumn, rowIdx)), Values: [][]interface{}{{s.now().UTC().Format(timestampLayout)}}},
		},
	}
	if _, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// DeleteBooking clears the booking's row. A booking without a row is already gone.
func (s *SheetsService) DeleteBooking(ctx context.Context, bookingID string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if errors.Is(err, ErrRowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	rangeData := s.rangeOf(fmt.Sprintf("A%d:%s%d", rowIdx, lastColumn, rowIdx))
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rangeData, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear booking row: %w", err)
	}
	s.deleteCachedRow(bookingID)
	return nil
}

// ReplaceBookings rewrites the whole sheet from bookings, header included.
func (s *SheetsService) ReplaceBookings(ctx context.Context, bookings []models.Booking) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.rangeOf("A:"+lastColumn), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear bookings sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(bookings)+1)
	values = append(values, bookingHeaders)
	for i := range bookings {
		values = append(values, s.bookingRow(&bookings[i]))
	}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write bookings sheet: %w", err)
	}

	cache := make(map[string]int, len(bookings))
	for i, b := range bookings {
		cache[b.ID] = i + 2
	}
	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) bookingRow(b *models.Booking) []interface{} {
	paid := "no"
	if b.Paid {
		paid = "yes"
	}
	return []interface{}{
		b.ID,
		b.CustomerID,
		b.CustomerName,
		b.RoomNumber,
		string(b.RoomType),
		b.CheckIn.String(),
		b.CheckOut.String(),
		b.Nights(),
		string(b.Status),
		paid,
		string(b.Origin),
		b.CreatedAt.UTC().Format(timestampLayout),
		s.now().UTC().Format(timestampLayout),
	}
}

func cellString(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	switch v := row[0].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// firstRow extracts 10 from "Bookings!A10:M10".
func firstRow(a1 string) (int, bool) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCachedRow(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}
