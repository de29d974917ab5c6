package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/pagination"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const fragmentColumns = `id, course_id, source_title, content, tags, embedding, usage_count, created_at, updated_at`

// FragmentRepository stores knowledge fragments and serves keyword, vector and tag lookups.
type FragmentRepository struct {
	db dbtx
}

func NewFragmentRepository(pool *pgxpool.Pool) *FragmentRepository {
	return &FragmentRepository{db: pool}
}

func NewFragmentRepositoryWithTx(tx pgx.Tx) *FragmentRepository {
	return &FragmentRepository{db: tx}
}

func (r *FragmentRepository) Create(ctx context.Context, f *domain.KnowledgeFragment) error {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_fragments (id, course_id, source_title, content, tags, embedding, usage_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.CourseID, f.SourceTitle, f.Content, tags, vectorOrNil(f.Embedding), f.UsageCount, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

func (r *FragmentRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeFragment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fragmentColumns+` FROM knowledge_fragments WHERE id = $1`, id)
	f, err := scanFragment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFragmentNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *FragmentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_fragments SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFragmentNotFound
	}
	return nil
}

// KeywordSearch returns fragments whose content contains any term, or whose tags
// include one. Scoring happens in the retriever.
func (r *FragmentRepository) KeywordSearch(ctx context.Context, terms []string, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + t + "%"
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+fragmentColumns+`
		 FROM knowledge_fragments
		 WHERE ($1 = '' OR course_id = $1)
		   AND (unaccent_lower(content) ILIKE ANY($2) OR tags && $3)
		 ORDER BY usage_count DESC, id ASC
		 LIMIT $4`,
		courseID, patterns, terms, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragmentRows(rows)
}

// VectorSearch ranks embedded fragments by cosine similarity to embedding.
func (r *FragmentRepository) VectorSearch(ctx context.Context, embedding []float32, courseID string, limit int) ([]domain.ScoredFragment, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+fragmentColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM knowledge_fragments
		 WHERE embedding IS NOT NULL AND ($2 = '' OR course_id = $2)
		 ORDER BY embedding <=> $1, id ASC
		 LIMIT $3`,
		pgvector.NewVector(embedding), courseID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredFragment
	for rows.Next() {
		var f domain.KnowledgeFragment
		var vec *pgvector.Vector
		var similarity float64
		if err := rows.Scan(&f.ID, &f.CourseID, &f.SourceTitle, &f.Content, &f.Tags, &vec, &f.UsageCount, &f.CreatedAt, &f.UpdatedAt, &similarity); err != nil {
			return nil, err
		}
		if vec != nil {
			f.Embedding = vec.Slice()
		}
		results = append(results, domain.ScoredFragment{Fragment: &f, Score: similarity})
	}
	return results, rows.Err()
}

func (r *FragmentRepository) FindByTag(ctx context.Context, tag, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+fragmentColumns+`
		 FROM knowledge_fragments
		 WHERE lower($1) = ANY(tags) AND ($2 = '' OR course_id = $2)
		 ORDER BY usage_count DESC, id ASC
		 LIMIT $3`,
		tag, courseID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragmentRows(rows)
}

func (r *FragmentRepository) IncrementUsage(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE knowledge_fragments SET usage_count = usage_count + 1 WHERE id = ANY($1)`,
		ids,
	)
	return err
}

// FirstByCourse returns the earliest fragments of a course in ingestion order.
func (r *FragmentRepository) FirstByCourse(ctx context.Context, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+fragmentColumns+`
		 FROM knowledge_fragments
		 WHERE course_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2`,
		courseID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFragmentRows(rows)
}

func (r *FragmentRepository) IDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM knowledge_fragments WHERE course_id = $1 ORDER BY created_at ASC, id ASC`,
		courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *FragmentRepository) ListByCourseWithCursor(ctx context.Context, courseID string, cursor *pagination.Cursor, limit int) (*service.FragmentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+fragmentColumns+`
			 FROM knowledge_fragments
			 WHERE course_id = $1 AND (created_at, id) > ($2, $3)
			 ORDER BY created_at ASC, id ASC
			 LIMIT $4`,
			courseID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+fragmentColumns+`
			 FROM knowledge_fragments
			 WHERE course_id = $1
			 ORDER BY created_at ASC, id ASC
			 LIMIT $2`,
			courseID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanFragmentRows(rows)
	if err != nil {
		return nil, err
	}

	return pagination.NewPage(items, limit,
		func(f *domain.KnowledgeFragment) string { return f.ID },
		func(f *domain.KnowledgeFragment) time.Time { return f.CreatedAt },
	), nil
}

func scanFragment(row pgx.Row) (*domain.KnowledgeFragment, error) {
	var f domain.KnowledgeFragment
	var vec *pgvector.Vector
	if err := row.Scan(&f.ID, &f.CourseID, &f.SourceTitle, &f.Content, &f.Tags, &vec, &f.UsageCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if vec != nil {
		f.Embedding = vec.Slice()
	}
	return &f, nil
}

func scanFragmentRows(rows pgx.Rows) ([]*domain.KnowledgeFragment, error) {
	var results []*domain.KnowledgeFragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

func vectorOrNil(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}
