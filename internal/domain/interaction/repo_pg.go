package interaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cdss/refdata/internal/platform/catalog"
	"github.com/cdss/refdata/internal/platform/db"
)

// PGRepository reads and writes the drug reference tables.
type PGRepository struct {
	db db.Querier
}

func NewPGRepository(q db.Querier) *PGRepository { return &PGRepository{db: q} }

// Fetch loads the drug database and builds a validated catalog. It is used
// as the loader fetch function for the "postgres" source.
func (r *PGRepository) Fetch(ctx context.Context) (*Catalog, error) {
	database, err := r.Database(ctx)
	if err != nil {
		return nil, err
	}
	c, err := NewCatalog(database)
	if err != nil {
		return nil, catalog.Permanent(err)
	}
	return c, nil
}

// Database reads the reference tables in catalog order.
func (r *PGRepository) Database(ctx context.Context) (*Database, error) {
	var out Database

	err := r.db.QueryRow(ctx, `SELECT version FROM reference_drug_metadata WHERE id = 1`).Scan(&out.Version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("drug metadata: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, name, generic_name, brand_names, category, active_ingredients,
		        mechanism, common_uses, fda_approved
		 FROM reference_drug ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("drugs: %w", err)
	}
	out.Drugs, err = pgx.CollectRows(rows, scanDrug)
	if err != nil {
		return nil, fmt.Errorf("drugs: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT id, drug1, drug2, drug1_name, drug2_name, severity, mechanism, description,
		        clinical_effect, management, evidence_level, sources, last_updated
		 FROM reference_drug_interaction ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("drug interactions: %w", err)
	}
	out.Interactions, err = pgx.CollectRows(rows, scanInteraction)
	if err != nil {
		return nil, fmt.Errorf("drug interactions: %w", err)
	}
	return &out, nil
}

func scanDrug(row pgx.CollectableRow) (Drug, error) {
	var d Drug
	var category string
	err := row.Scan(&d.ID, &d.Name, &d.GenericName, &d.BrandNames, &category,
		&d.ActiveIngredients, &d.Mechanism, &d.CommonUses, &d.FDAApproved)
	d.Category = ParseCategory(category)
	return d, err
}

func scanInteraction(row pgx.CollectableRow) (Interaction, error) {
	var ix Interaction
	var severity, evidence string
	err := row.Scan(&ix.ID, &ix.Drug1ID, &ix.Drug2ID, &ix.Drug1Name, &ix.Drug2Name,
		&severity, &ix.Mechanism, &ix.Description, &ix.ClinicalEffect,
		&ix.ManagementRecommendation, &evidence, &ix.Sources, &ix.LastUpdated)
	ix.Severity = ParseSeverity(severity)
	ix.EvidenceLevel = ParseEvidenceLevel(evidence)
	return ix, err
}

// Seed replaces the reference table contents with database in a single
// transaction. Returns the number of interactions written.
func (r *PGRepository) Seed(ctx context.Context, database *Database) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE reference_drug, reference_drug_interaction`); err != nil {
		return 0, fmt.Errorf("truncate drug tables: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"reference_drug"},
		[]string{"id", "name", "generic_name", "brand_names", "category", "active_ingredients",
			"mechanism", "common_uses", "fda_approved", "position"},
		pgx.CopyFromRows(drugRows(database.Drugs)),
	); err != nil {
		return 0, fmt.Errorf("copy drugs: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"reference_drug_interaction"},
		[]string{"id", "drug1", "drug2", "drug1_name", "drug2_name", "severity", "mechanism",
			"description", "clinical_effect", "management", "evidence_level", "sources",
			"last_updated", "position"},
		pgx.CopyFromRows(interactionRows(database.Interactions)),
	)
	if err != nil {
		return 0, fmt.Errorf("copy drug interactions: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO reference_drug_metadata (id, version) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version`,
		database.Version,
	); err != nil {
		return 0, fmt.Errorf("upsert drug metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func drugRows(drugs []Drug) [][]any {
	rows := make([][]any, len(drugs))
	for i, d := range drugs {
		rows[i] = []any{d.ID, d.Name, d.GenericName, nonNil(d.BrandNames), string(d.Category),
			nonNil(d.ActiveIngredients), d.Mechanism, nonNil(d.CommonUses), d.FDAApproved, i}
	}
	return rows
}

func interactionRows(ixs []Interaction) [][]any {
	rows := make([][]any, len(ixs))
	for i, ix := range ixs {
		rows[i] = []any{ix.ID, ix.Drug1ID, ix.Drug2ID, ix.Drug1Name, ix.Drug2Name,
			ix.Severity.String(), ix.Mechanism, ix.Description, ix.ClinicalEffect,
			ix.ManagementRecommendation, ix.EvidenceLevel.String(), nonNil(ix.Sources),
			ix.LastUpdated, i}
	}
	return rows
}
