package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cdss/refdata/internal/config"
	"github.com/cdss/refdata/internal/domain/icd10"
	"github.com/cdss/refdata/internal/domain/interaction"
	"github.com/cdss/refdata/internal/platform/catalog"
	"github.com/cdss/refdata/internal/platform/db"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert an ICD-10 release table (CSV or XLSX) into a JSON catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			opts := icd10.ImportOptions{}
			opts.Compact, _ = cmd.Flags().GetBool("compact")
			opts.Version, _ = cmd.Flags().GetString("version")
			opts.Sheet, _ = cmd.Flags().GetString("sheet")

			n, err := importRelease(in, out, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d codes to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().String("in", "", "Path to the release table (.csv or .xlsx)")
	cmd.Flags().String("out", "icd10_codes.json", "Path of the JSON catalog to write")
	cmd.Flags().Bool("compact", false, "Drop short descriptions and synonyms")
	cmd.Flags().String("version", icd10.DefaultReleaseVersion, "Release version recorded in the metadata")
	cmd.Flags().String("sheet", "", "Worksheet to read from an XLSX workbook")
	cmd.MarkFlagRequired("in")
	return cmd
}

func importRelease(in, out string, opts icd10.ImportOptions) (int, error) {
	format, err := icd10.FormatFromPath(in)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("open release table: %w", err)
	}
	defer f.Close()

	database, err := icd10.Import(f, format, opts)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", in, err)
	}

	var data []byte
	if opts.Compact {
		data, err = json.Marshal(database)
	} else {
		data, err = json.MarshalIndent(database, "", "  ")
	}
	if err != nil {
		return 0, fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return 0, fmt.Errorf("write catalog: %w", err)
	}
	return len(database.Codes), nil
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the configured catalogs and report integrity problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			checkICD, _ := cmd.Flags().GetBool("icd10")
			checkDrugs, _ := cmd.Flags().GetBool("drugs")
			if !checkICD && !checkDrugs {
				checkICD, checkDrugs = true, true
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			b, err := openBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			out := cmd.OutOrStdout()
			var invalid []string
			if checkICD {
				loader, err := newICD10Loader(cfg, b, zerolog.Nop())
				if err != nil {
					return err
				}
				if !reportICD10(out, loader.Load(ctx)) {
					invalid = append(invalid, "ICD-10")
				}
			}
			if checkDrugs {
				loader, err := newDrugLoader(cfg, b, zerolog.Nop())
				if err != nil {
					return err
				}
				if !reportDrugs(out, loader.Load(ctx)) {
					invalid = append(invalid, "drug")
				}
			}
			if len(invalid) > 0 {
				return fmt.Errorf("invalid catalog: %s", strings.Join(invalid, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("icd10", false, "Validate the ICD-10 catalog")
	cmd.Flags().Bool("drugs", false, "Validate the drug interaction catalog")
	return cmd
}

func printViolations(out io.Writer, err error) bool {
	var v interface{ Violations() []string }
	if !errors.As(err, &v) {
		return false
	}
	for _, msg := range v.Violations() {
		fmt.Fprintf(out, "  - %s\n", msg)
	}
	return true
}

// reportICD10 prints the ICD-10 catalog state and reports whether the
// configured source passed validation.
func reportICD10(out io.Writer, snap *catalog.Snapshot[*icd10.Catalog]) bool {
	fmt.Fprintf(out, "ICD-10: %d codes from %s (%s)\n", snap.RecordCount, snap.Source, snap.Mode)
	if snap.Err != nil {
		fmt.Fprintf(out, "  primary source failed: %v\n", snap.Err)
		if printViolations(out, snap.Err) {
			return false
		}
	}
	if snap.UsingFallback() {
		fmt.Fprintln(out, "  serving the limited fallback dataset")
	}
	return true
}

// reportDrugs prints the drug catalog state and reports whether the
// configured source passed validation.
func reportDrugs(out io.Writer, snap *catalog.Snapshot[*interaction.Catalog]) bool {
	fmt.Fprintf(out, "Drugs: %d drugs, %d interactions from %s (%s)\n",
		snap.RecordCount, snap.Data.InteractionCount(), snap.Source, snap.Mode)
	if snap.Err != nil {
		fmt.Fprintf(out, "  primary source failed: %v\n", snap.Err)
		if printViolations(out, snap.Err) {
			return false
		}
	}
	res := snap.Data.ValidateCatalog()
	for _, msg := range res.Errors {
		fmt.Fprintf(out, "  - %s\n", msg)
	}
	if res.IsValid {
		fmt.Fprintln(out, "  valid")
	}
	return res.IsValid
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the reference tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, q db.Querier) error {
				count, err := db.NewMigrator(q, db.EmbeddedMigrations()).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, q db.Querier) error {
				statuses, err := db.NewMigrator(q, db.EmbeddedMigrations()).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func printMigrationStatus(out io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// withPool runs fn against a pool opened from DATABASE_URL.
func withPool(fn func(ctx context.Context, q db.Querier) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, newLogger(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bulk-load a catalog into the PostgreSQL reference tables",
	}

	icdCmd := &cobra.Command{
		Use:   "icd10",
		Short: "Seed ICD-10 codes from a JSON catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			database, err := readICD10Database(file)
			if err != nil {
				return err
			}
			return withPool(func(ctx context.Context, q db.Querier) error {
				n, err := icd10.NewPGRepository(q).Seed(ctx, database)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d ICD-10 codes.\n", n)
				return nil
			})
		},
	}
	icdCmd.Flags().String("file", "", "Path to the ICD-10 JSON catalog")
	icdCmd.MarkFlagRequired("file")
	cmd.AddCommand(icdCmd)

	drugsCmd := &cobra.Command{
		Use:   "drugs",
		Short: "Seed drugs and interactions (the curated dataset by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			database, err := readDrugDatabase(file)
			if err != nil {
				return err
			}
			return withPool(func(ctx context.Context, q db.Querier) error {
				n, err := interaction.NewPGRepository(q).Seed(ctx, database)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d drugs and %d interactions.\n", len(database.Drugs), n)
				return nil
			})
		},
	}
	drugsCmd.Flags().String("file", "", "Path to a drug JSON catalog")
	cmd.AddCommand(drugsCmd)

	return cmd
}

// readICD10Database reads and validates an ICD-10 catalog file.
func readICD10Database(path string) (*icd10.Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	database, err := icd10.ParseDatabase(data)
	if err != nil {
		return nil, err
	}
	if _, err := icd10.NewCatalog(database, false); err != nil {
		return nil, err
	}
	return database, nil
}

// readDrugDatabase reads and validates a drug catalog file. An empty path
// selects the curated dataset.
func readDrugDatabase(path string) (*interaction.Database, error) {
	if path == "" {
		return interaction.CuratedDatabase(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := interaction.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Database(), nil
}

func publishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Store a validated catalog in Redis for the redis source",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			file, _ := cmd.Flags().GetString("file")
			key, _ := cmd.Flags().GetString("key")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return errors.New("REDIS_URL is required")
			}

			data, defaultKey, err := publishPayload(kind, file, cfg)
			if err != nil {
				return err
			}
			if key == "" {
				key = defaultKey
			}

			ctx := context.Background()
			b, err := openBackends(ctx, &config.Config{RedisURL: cfg.RedisURL}, newLogger(cfg))
			if err != nil {
				return err
			}
			defer b.Close()

			if err := catalog.Publish(ctx, b.redis, key, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s catalog (%d bytes) to %s\n", kind, len(data), key)
			return nil
		},
	}
	cmd.Flags().String("kind", "", "Catalog kind: icd10 or drugs")
	cmd.Flags().String("file", "", "Path to the JSON catalog (drugs default to the curated dataset)")
	cmd.Flags().String("key", "", "Redis key (defaults to ICD10_REDIS_KEY or DRUG_REDIS_KEY)")
	cmd.MarkFlagRequired("kind")
	return cmd
}

// publishPayload validates the catalog to publish and returns its bytes and
// the configured key for its kind.
func publishPayload(kind, file string, cfg *config.Config) ([]byte, string, error) {
	switch kind {
	case "icd10":
		if file == "" {
			return nil, "", errors.New("--file is required for icd10")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, "", fmt.Errorf("read catalog: %w", err)
		}
		if _, err := icd10.Decode(data); err != nil {
			return nil, "", err
		}
		return data, cfg.ICD10RedisKey, nil
	case "drugs":
		database, err := readDrugDatabase(file)
		if err != nil {
			return nil, "", err
		}
		data, err := json.Marshal(database)
		if err != nil {
			return nil, "", fmt.Errorf("encode catalog: %w", err)
		}
		return data, cfg.DrugRedisKey, nil
	default:
		return nil, "", fmt.Errorf("unknown catalog kind %q (want icd10 or drugs)", kind)
	}
}
