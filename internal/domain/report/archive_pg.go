package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type archiveRepoPG struct{ pool *pgxpool.Pool }

// NewArchiveRepoPG creates an archive backed by the report_archive table.
func NewArchiveRepoPG(pool *pgxpool.Pool) ArchiveRepository {
	return &archiveRepoPG{pool: pool}
}

const archiveCols = `id, baby_id, kind, file_name, age_groups, statuses,
	vaccinated, not_vaccinated, skipped, requested_by, generated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.BabyID, &rec.Kind, &rec.FileName, &rec.AgeGroups, &rec.Statuses,
		&rec.Vaccinated, &rec.NotVaccinated, &rec.Skipped, &rec.RequestedBy, &rec.GeneratedAt)
	return &rec, err
}

func (r *archiveRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	if rec.AgeGroups == nil {
		rec.AgeGroups = []string{}
	}
	if rec.Statuses == nil {
		rec.Statuses = []string{}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO report_archive (id, baby_id, kind, file_name, age_groups, statuses,
			vaccinated, not_vaccinated, skipped, requested_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING generated_at`,
		rec.ID, rec.BabyID, rec.Kind, rec.FileName, rec.AgeGroups, rec.Statuses,
		rec.Vaccinated, rec.NotVaccinated, rec.Skipped, rec.RequestedBy).Scan(&rec.GeneratedAt)
}

func (r *archiveRepoPG) ListByBaby(ctx context.Context, babyID string, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM report_archive WHERE baby_id = $1`, babyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+archiveCols+` FROM report_archive WHERE baby_id = $1 ORDER BY generated_at DESC LIMIT $2 OFFSET $3`, babyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectRecords(rows)
	return items, total, err
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	items := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
