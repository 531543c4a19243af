package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"hotelbook/internal/models"
)

// DB stores the snapshot in SQLite tables. Save rewrites every table in one transaction.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; the Store already serializes access
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite storage initialized")
	return &DB{DB: sqlDB, path: path, logger: logger}, nil
}

func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
            position INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            origin TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS rooms (
            position INTEGER NOT NULL,
            number TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            price_cents INTEGER NOT NULL,
            in_service BOOLEAN NOT NULL DEFAULT 1,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            position INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            customer_id TEXT NOT NULL,
            room_number TEXT NOT NULL,
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            status TEXT NOT NULL,
            paid BOOLEAN NOT NULL DEFAULT 0,
            origin TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            room_type TEXT NOT NULL,
            created_at TEXT NOT NULL,
            cancelled_at TEXT,
            paid_at TEXT,
            reactivated_at TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS hotel_profile (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            name TEXT NOT NULL,
            address TEXT NOT NULL,
            phone TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_room ON bookings(room_number, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_email ON customers(email)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Load reads the full snapshot. An empty database yields the default snapshot.
func (db *DB) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := models.DefaultSnapshot()

	if err := db.loadCustomers(ctx, snap); err != nil {
		return nil, err
	}
	if err := db.loadRooms(ctx, snap); err != nil {
		return nil, err
	}
	if err := db.loadBookings(ctx, snap); err != nil {
		return nil, err
	}

	var p models.HotelProfile
	err := db.QueryRowContext(ctx, `SELECT name, address, phone FROM hotel_profile WHERE id = 1`).
		Scan(&p.Name, &p.Address, &p.Phone)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to load hotel profile: %w", err)
	default:
		snap.HotelProfile = p
	}

	snap.Normalize()
	return snap, nil
}

func (db *DB) loadCustomers(ctx context.Context, snap *models.Snapshot) error {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, email, phone, origin, created_at FROM customers ORDER BY position`)
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Customer
		var origin, createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &origin, &createdAt); err != nil {
			return fmt.Errorf("failed to scan customer: %w", err)
		}
		c.Origin = models.Origin(origin)
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("customer %s: %w", c.ID, err)
		}
		snap.Customers = append(snap.Customers, c)
	}
	return rows.Err()
}

func (db *DB) loadRooms(ctx context.Context, snap *models.Snapshot) error {
	rows, err := db.QueryContext(ctx,
		`SELECT number, type, price_cents, in_service, created_at FROM rooms ORDER BY position`)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Room
		var roomType, createdAt string
		var cents int64
		if err := rows.Scan(&r.Number, &roomType, &cents, &r.InService, &createdAt); err != nil {
			return fmt.Errorf("failed to scan room: %w", err)
		}
		r.Type = models.RoomType(roomType)
		r.Price = models.Money(cents)
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("room %s: %w", r.Number, err)
		}
		snap.Rooms = append(snap.Rooms, r)
	}
	return rows.Err()
}

func (db *DB) loadBookings(ctx context.Context, snap *models.Snapshot) error {
	rows, err := db.QueryContext(ctx, `
        SELECT id, customer_id, room_number, check_in, check_out, status, paid, origin,
               customer_name, room_type, created_at, cancelled_at, paid_at, reactivated_at
        FROM bookings ORDER BY position`)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Booking
		var checkIn, checkOut, status, origin, roomType, createdAt string
		var cancelledAt, paidAt, reactivatedAt sql.NullString
		err := rows.Scan(
			&b.ID, &b.CustomerID, &b.RoomNumber, &checkIn, &checkOut, &status, &b.Paid, &origin,
			&b.CustomerName, &roomType, &createdAt, &cancelledAt, &paidAt, &reactivatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Status = models.BookingStatus(status)
		b.Origin = models.Origin(origin)
		b.RoomType = models.RoomType(roomType)
		if b.CheckIn, err = models.ParseDate(checkIn); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if b.CheckOut, err = models.ParseDate(checkOut); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if b.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if b.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if b.PaidAt, err = parseNullTime(paidAt); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if b.ReactivatedAt, err = parseNullTime(reactivatedAt); err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		snap.Bookings = append(snap.Bookings, b)
	}
	return rows.Err()
}

// Save replaces the stored snapshot atomically.
func (db *DB) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"bookings", "rooms", "customers", "hotel_profile"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, c := range snap.Customers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO customers (position, id, name, email, phone, origin, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, c.ID, c.Name, c.Email, c.Phone, string(c.Origin), formatTime(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save customer %s: %w", c.ID, err)
		}
	}

	for i, r := range snap.Rooms {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (position, number, type, price_cents, in_service, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			i, r.Number, string(r.Type), int64(r.Price), r.InService, formatTime(r.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save room %s: %w", r.Number, err)
		}
	}

	for i := range snap.Bookings {
		b := &snap.Bookings[i]
		_, err := tx.ExecContext(ctx, `
            INSERT INTO bookings (position, id, customer_id, room_number, check_in, check_out, status, paid, origin,
                                  customer_name, room_type, created_at, cancelled_at, paid_at, reactivated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, b.ID, b.CustomerID, b.RoomNumber, b.CheckIn.String(), b.CheckOut.String(), string(b.Status), b.Paid,
			string(b.Origin), b.CustomerName, string(b.RoomType), formatTime(b.CreatedAt),
			formatNullTime(b.CancelledAt), formatNullTime(b.PaidAt), formatNullTime(b.ReactivatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save booking %s: %w", b.ID, err)
		}
	}

	p := snap.HotelProfile
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO hotel_profile (id, name, address, phone) VALUES (1, ?, ?, ?)`,
		p.Name, p.Address, p.Phone,
	); err != nil {
		return fmt.Errorf("failed to save hotel profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}

func parseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
