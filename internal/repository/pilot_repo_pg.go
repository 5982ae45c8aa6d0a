package repository

import (
	"context"
	"errors"

	"github.com/aerohive/missions/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PilotRepository interface {
	// ListAvailable returns verified, active pilots. With a non-empty category
	// only pilots carrying that specialization are returned. Each row is a
	// snapshot; nothing is reserved.
	ListAvailable(ctx context.Context, category string) ([]domain.Pilot, error)
	GetByID(ctx context.Context, id string) (*domain.Pilot, error)
}

type PGPilotRepository struct {
	db *pgxpool.Pool
}

func NewPilotRepository(db *pgxpool.Pool) PilotRepository {
	return &PGPilotRepository{db: db}
}

const pilotColumns = `id, full_name, phone, email, location_lat, location_lng, specializations, rating, hourly_rate, is_verified, is_active`

func scanPilot(row pgx.Row) (*domain.Pilot, error) {
	var p domain.Pilot
	if err := row.Scan(&p.ID, &p.FullName, &p.Phone, &p.Email, &p.Location.Lat, &p.Location.Lng,
		&p.Specializations, &p.Rating, &p.HourlyRate, &p.IsVerified, &p.IsActive); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPilotRepository) ListAvailable(ctx context.Context, category string) ([]domain.Pilot, error) {
	query := `SELECT ` + pilotColumns + ` FROM pilots WHERE is_verified AND is_active`
	args := []any{}
	if category != "" {
		query += ` AND $1 = ANY(specializations)`
		args = append(args, category)
	}
	query += ` ORDER BY rating DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list pilots", err)
	}
	defer rows.Close()

	pilots := make([]domain.Pilot, 0)
	for rows.Next() {
		p, err := scanPilot(rows)
		if err != nil {
			return nil, storeErr("scan pilot", err)
		}
		pilots = append(pilots, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list pilots", err)
	}
	return pilots, nil
}

func (r *PGPilotRepository) GetByID(ctx context.Context, id string) (*domain.Pilot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+pilotColumns+` FROM pilots WHERE id=$1`, id)
	p, err := scanPilot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get pilot", err)
	}
	return p, nil
}

var _ PilotRepository = (*PGPilotRepository)(nil)
