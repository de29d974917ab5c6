package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CourseFileRepository struct {
	db dbtx
}

func NewCourseFileRepository(pool *pgxpool.Pool) *CourseFileRepository {
	return &CourseFileRepository{db: pool}
}

func NewCourseFileRepositoryWithTx(tx pgx.Tx) *CourseFileRepository {
	return &CourseFileRepository{db: tx}
}

func (r *CourseFileRepository) Create(ctx context.Context, f *domain.CourseFile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO course_files (id, course_id, filename, mime_type, size_bytes, storage_key, degraded, fragments, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.CourseID, f.Filename, f.MimeType, f.SizeBytes, nullableString(f.StorageKey), f.Degraded, f.Fragments, f.CreatedAt,
	)
	return err
}

func (r *CourseFileRepository) GetByID(ctx context.Context, id string) (*domain.CourseFile, error) {
	var f domain.CourseFile
	var storageKey *string
	err := r.db.QueryRow(ctx,
		`SELECT id, course_id, filename, mime_type, size_bytes, storage_key, degraded, fragments, created_at
		 FROM course_files WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.CourseID, &f.Filename, &f.MimeType, &f.SizeBytes, &storageKey, &f.Degraded, &f.Fragments, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCourseFileNotFound
		}
		return nil, err
	}
	if storageKey != nil {
		f.StorageKey = *storageKey
	}
	return &f, nil
}

func (r *CourseFileRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.CourseFile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, course_id, filename, mime_type, size_bytes, storage_key, degraded, fragments, created_at
		 FROM course_files WHERE course_id = $1 ORDER BY created_at ASC, id ASC`,
		courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*domain.CourseFile
	for rows.Next() {
		var f domain.CourseFile
		var storageKey *string
		if err := rows.Scan(&f.ID, &f.CourseID, &f.Filename, &f.MimeType, &f.SizeBytes, &storageKey, &f.Degraded, &f.Fragments, &f.CreatedAt); err != nil {
			return nil, err
		}
		if storageKey != nil {
			f.StorageKey = *storageKey
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}
