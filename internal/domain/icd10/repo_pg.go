package icd10

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cdss/refdata/internal/platform/catalog"
	"github.com/cdss/refdata/internal/platform/db"
)

// PGRepository reads and writes the ICD-10 reference tables.
type PGRepository struct {
	db db.Querier
}

func NewPGRepository(q db.Querier) *PGRepository { return &PGRepository{db: q} }

// Fetch loads the full code database and builds a validated catalog. It is
// used as the loader fetch function for the "postgres" source.
func (r *PGRepository) Fetch(ctx context.Context) (*Catalog, error) {
	database, err := r.Database(ctx)
	if err != nil {
		return nil, err
	}
	c, err := NewCatalog(database, false)
	if err != nil {
		return nil, catalog.Permanent(err)
	}
	return c, nil
}

// Database reads the reference tables in catalog order.
func (r *PGRepository) Database(ctx context.Context) (*Database, error) {
	var out Database

	err := r.db.QueryRow(ctx,
		`SELECT version, generated_at FROM reference_icd10_metadata WHERE id = 1`).
		Scan(&out.Metadata.Version, &out.Metadata.GeneratedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("icd10 metadata: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT code, title, range_label FROM reference_icd10_category ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("icd10 categories: %w", err)
	}
	out.Categories, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[Category])
	if err != nil {
		return nil, fmt.Errorf("icd10 categories: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT code, description, short_description, category, category_code, synonyms
		 FROM reference_icd10 ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("icd10 codes: %w", err)
	}
	out.Codes, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[Code])
	if err != nil {
		return nil, fmt.Errorf("icd10 codes: %w", err)
	}

	out.Metadata.TotalCodes = len(out.Codes)
	out.Metadata.TotalCategories = len(out.Categories)
	return &out, nil
}

// Seed replaces the reference table contents with database in a single
// transaction. Returns the number of codes written.
func (r *PGRepository) Seed(ctx context.Context, database *Database) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE reference_icd10, reference_icd10_category`); err != nil {
		return 0, fmt.Errorf("truncate icd10 tables: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"reference_icd10_category"},
		[]string{"code", "title", "range_label", "position"},
		pgx.CopyFromRows(categoryRows(database.Categories)),
	); err != nil {
		return 0, fmt.Errorf("copy icd10 categories: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"reference_icd10"},
		[]string{"code", "description", "short_description", "category", "category_code", "synonyms", "position"},
		pgx.CopyFromRows(codeRows(database.Codes)),
	)
	if err != nil {
		return 0, fmt.Errorf("copy icd10 codes: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO reference_icd10_metadata (id, version, generated_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, generated_at = EXCLUDED.generated_at`,
		database.Metadata.Version, database.Metadata.GeneratedAt,
	); err != nil {
		return 0, fmt.Errorf("upsert icd10 metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func categoryRows(cats []Category) [][]any {
	rows := make([][]any, len(cats))
	for i, c := range cats {
		rows[i] = []any{c.Code, c.Title, c.Range, i}
	}
	return rows
}

func codeRows(codes []Code) [][]any {
	rows := make([][]any, len(codes))
	for i, c := range codes {
		synonyms := c.Synonyms
		if synonyms == nil {
			synonyms = []string{}
		}
		rows[i] = []any{c.Code, c.Description, c.ShortDescription, c.Category, c.CategoryCode, synonyms, i}
	}
	return rows
}
