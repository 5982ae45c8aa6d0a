package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aerohive/missions/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, public_reference, tracking_token, client_id, pilot_id, status, otp_code,
	service_type, scheduled_at, duration_hours, location_lat, location_lng,
	pilot_location_lat, pilot_location_lng, created_at, updated_at`

// BookingDetails is the joined read used by the tracking feed.
type BookingDetails struct {
	Booking     domain.Booking
	ClientName  string
	ClientPhone string
	Pilot       *domain.Pilot // nil until a pilot accepted
}

type BookingRepository interface {
	// CreateWithQuota counts the client's active bookings and inserts in one
	// transaction. Returns domain.ErrQuotaExceeded when the client already
	// holds maxActive non-terminal bookings.
	CreateWithQuota(ctx context.Context, booking *domain.Booking, maxActive int) error
	GetByReference(ctx context.Context, ref string) (*domain.Booking, error)
	GetByTrackingToken(ctx context.Context, token string) (*domain.Booking, error)
	GetDetails(ctx context.Context, ref string) (*BookingDetails, error)
	GetDetailsByToken(ctx context.Context, token string) (*BookingDetails, error)
	// AssignPilot moves PENDING to ACCEPTED and binds the pilot. applied is
	// false when the booking was not PENDING at update time.
	AssignPilot(ctx context.Context, ref, pilotID string) (booking *domain.Booking, applied bool, err error)
	// TransitionStatus is a compare-and-set on the status column: the update
	// applies only if the current status is one of from.
	TransitionStatus(ctx context.Context, ref string, from []domain.MissionStatus, to domain.MissionStatus) (booking *domain.Booking, applied bool, err error)
	// UpdatePilotLocation writes the live position; it applies only while the
	// booking is IN_PROGRESS and reports false otherwise.
	UpdatePilotLocation(ctx context.Context, ref string, loc domain.Location) (applied bool, err error)
	CountActive(ctx context.Context, clientID string) (int, error)
	ListActive(ctx context.Context, clientID string) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var pilotLat, pilotLng *float64
	err := row.Scan(&b.ID, &b.Reference, &b.TrackingToken, &b.ClientID, &b.PilotID, &b.Status, &b.OTPCode,
		&b.ServiceType, &b.ScheduledAt, &b.DurationHours, &b.Location.Lat, &b.Location.Lng,
		&pilotLat, &pilotLng, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if pilotLat != nil && pilotLng != nil {
		b.PilotLocation = &domain.Location{Lat: *pilotLat, Lng: *pilotLng}
	}
	return &b, nil
}

func statusStrings(statuses []domain.MissionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *PGBookingRepository) CreateWithQuota(ctx context.Context, booking *domain.Booking, maxActive int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr("begin create booking", err)
	}
	defer tx.Rollback(ctx)

	var active int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE client_id=$1 AND status = ANY($2)`,
		booking.ClientID, statusStrings(domain.ActiveStatuses)).Scan(&active); err != nil {
		return storeErr("count active bookings", err)
	}
	if active >= maxActive {
		return domain.ErrQuotaExceeded
	}

	booking.Status = domain.MissionStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings
		(public_reference, tracking_token, client_id, status, otp_code, service_type, scheduled_at, duration_hours, location_lat, location_lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.TrackingToken, booking.ClientID, booking.Status, booking.OTPCode,
		booking.ServiceType, booking.ScheduledAt, booking.DurationHours, booking.Location.Lat, booking.Location.Lng).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return storeErr("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit create booking", err)
	}
	return nil
}

func (r *PGBookingRepository) getBy(ctx context.Context, column, value string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+column+`=$1`, value)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get booking", err)
	}
	return b, nil
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, ref string) (*domain.Booking, error) {
	return r.getBy(ctx, "public_reference", ref)
}

func (r *PGBookingRepository) GetByTrackingToken(ctx context.Context, token string) (*domain.Booking, error) {
	return r.getBy(ctx, "tracking_token", token)
}

func (r *PGBookingRepository) AssignPilot(ctx context.Context, ref, pilotID string) (*domain.Booking, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET pilot_id=$2, status=$3, updated_at=now()
		WHERE public_reference=$1 AND status=$4
		RETURNING `+bookingColumns, ref, pilotID, domain.MissionStatusAccepted, domain.MissionStatusPending)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storeErr("assign pilot", err)
	}
	return b, true, nil
}

func (r *PGBookingRepository) TransitionStatus(ctx context.Context, ref string, from []domain.MissionStatus, to domain.MissionStatus) (*domain.Booking, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now()
		WHERE public_reference=$1 AND status = ANY($3)
		RETURNING `+bookingColumns, ref, to, statusStrings(from))
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storeErr("transition status", err)
	}
	return b, true, nil
}

func (r *PGBookingRepository) UpdatePilotLocation(ctx context.Context, ref string, loc domain.Location) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET pilot_location_lat=$2, pilot_location_lng=$3, updated_at=now()
		WHERE public_reference=$1 AND status=$4`, ref, loc.Lat, loc.Lng, domain.MissionStatusInProgress)
	if err != nil {
		return false, storeErr("update pilot location", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGBookingRepository) CountActive(ctx context.Context, clientID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE client_id=$1 AND status = ANY($2)`,
		clientID, statusStrings(domain.ActiveStatuses)).Scan(&count)
	if err != nil {
		return 0, storeErr("count active bookings", err)
	}
	return count, nil
}

func (r *PGBookingRepository) ListActive(ctx context.Context, clientID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE client_id=$1 AND status = ANY($2) ORDER BY created_at DESC`,
		clientID, statusStrings(domain.ActiveStatuses))
	if err != nil {
		return nil, storeErr("list active bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storeErr("scan booking", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list active bookings", err)
	}
	return bookings, nil
}

const detailsQuery = `SELECT b.id, b.public_reference, b.tracking_token, b.client_id, b.pilot_id, b.status, b.otp_code,
		b.service_type, b.scheduled_at, b.duration_hours, b.location_lat, b.location_lng,
		b.pilot_location_lat, b.pilot_location_lng, b.created_at, b.updated_at,
		COALESCE(u.full_name, ''), COALESCE(u.phone, ''),
		p.id, p.full_name, p.phone, p.hourly_rate
	FROM bookings b
	LEFT JOIN users u ON u.id = b.client_id
	LEFT JOIN pilots p ON p.id = b.pilot_id
	WHERE `

func (r *PGBookingRepository) getDetailsBy(ctx context.Context, column, value string) (*BookingDetails, error) {
	row := r.db.QueryRow(ctx, detailsQuery+column+`=$1`, value)

	var d BookingDetails
	b := &d.Booking
	var pilotLat, pilotLng *float64
	var pilotID, pilotName, pilotPhone *string
	var pilotRate *float64
	err := row.Scan(&b.ID, &b.Reference, &b.TrackingToken, &b.ClientID, &b.PilotID, &b.Status, &b.OTPCode,
		&b.ServiceType, &b.ScheduledAt, &b.DurationHours, &b.Location.Lat, &b.Location.Lng,
		&pilotLat, &pilotLng, &b.CreatedAt, &b.UpdatedAt,
		&d.ClientName, &d.ClientPhone,
		&pilotID, &pilotName, &pilotPhone, &pilotRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get booking details", err)
	}
	if pilotLat != nil && pilotLng != nil {
		b.PilotLocation = &domain.Location{Lat: *pilotLat, Lng: *pilotLng}
	}
	if pilotID != nil {
		d.Pilot = &domain.Pilot{ID: *pilotID}
		if pilotName != nil {
			d.Pilot.FullName = *pilotName
		}
		if pilotPhone != nil {
			d.Pilot.Phone = *pilotPhone
		}
		if pilotRate != nil {
			d.Pilot.HourlyRate = *pilotRate
		}
	}
	return &d, nil
}

func (r *PGBookingRepository) GetDetails(ctx context.Context, ref string) (*BookingDetails, error) {
	return r.getDetailsBy(ctx, "b.public_reference", ref)
}

func (r *PGBookingRepository) GetDetailsByToken(ctx context.Context, token string) (*BookingDetails, error) {
	return r.getDetailsBy(ctx, "b.tracking_token", token)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
