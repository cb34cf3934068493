package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"grainmeta/adapters/community"
	"grainmeta/adapters/excel"
	"grainmeta/adapters/postgres"
	"grainmeta/adapters/rng"
	"grainmeta/adapters/spatial"
	"grainmeta/app"
	"grainmeta/domain/ecology"
	"grainmeta/internal"
	"grainmeta/internal/config"
	"grainmeta/internal/report"
	"grainmeta/models"
	"grainmeta/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:   "grainmeta",
		Short: "Simulated biodiversity meta-analysis across sampling grains",
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newRarefyCmd(),
		newExportCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSimulateCmd() *cobra.Command {
	var seed int64
	var studies int
	var out string
	var clustered bool
	var skipStandardization bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full simulation batch and write the result file",
		Long: `Design studies, generate communities under both conditions, sample them
with quadrats, compute metrics, and derive raw and effort-standardized
log-ratio effect sizes.

Defaults come from the environment (STUDIES, SEED, GRAIN_MIN, GRAIN_MAX,
QUADRATS, PLACEMENT, POOL_SIZE, INDIVIDUALS, SHAPE, TREATMENT_POOL_SIZE,
RAREFACTION_TARGET, CONCURRENCY); flags override the most common ones.

Example: grainmeta simulate --seed 42 --studies 50 --out run.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), seed, studies, out, clustered, skipStandardization)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 uses SEED from the environment)")
	cmd.Flags().IntVar(&studies, "studies", 0, "Number of simulated studies (0 uses STUDIES)")
	cmd.Flags().StringVar(&out, "out", "run.json", "Result file path")
	cmd.Flags().BoolVar(&clustered, "clustered", false, "Place individuals with a Thomas cluster process instead of uniformly")
	cmd.Flags().BoolVar(&skipStandardization, "skip-standardization", false, "Skip individual-based rarefaction")

	return cmd
}

func runSimulate(ctx context.Context, seed int64, studies int, out string, clustered, skipStandardization bool) error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	spec := specFromConfig(appConfig.Simulation)
	if seed != 0 {
		spec.Seed = seed
	}
	if studies != 0 {
		spec.Studies = studies
	}
	spec.SkipStandardization = skipStandardization
	if clustered {
		for _, params := range []*ecology.CommunityParams{&spec.Control, &spec.Treatment} {
			params.Spatial = ecology.SpatialClustered
			params.ParentsPerSpecies = 2
			params.ClusterSpread = 0.05
		}
	}

	repo, closeDB, err := openRepository(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeDB()

	service := app.NewSimulationService(
		community.NewGenerator(),
		spatial.NewSampler(),
		rng.NewAdapter(),
		repo,
		internal.DefaultLogger,
	)

	result, err := service.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if err := writeResult(out, *result); err != nil {
		return err
	}

	fmt.Printf("Run %s: %d studies, %d effect sizes (%d standardized)\n",
		result.Run.ID, result.Run.StudyCount, len(result.Effects), len(result.Standardized))
	for _, s := range result.Summaries {
		fmt.Printf("  %-18s standardized=%-5t mean LRR %+.4f [%.4f, %.4f] (%d/%d defined)\n",
			s.Metric, s.Standardized, s.MeanLRR, s.CILow, s.CIHigh, s.Defined, s.Studies)
	}
	fmt.Printf("Result written to %s\n", out)
	return nil
}

func newRarefyCmd() *cobra.Command {
	var target int
	var out string

	cmd := &cobra.Command{
		Use:   "rarefy [result-file]",
		Short: "Re-standardize a stored run at a different rarefaction target",
		Long: `Recompute rarefied-richness effect sizes from the retained quadrat samples
without regenerating communities. A target of 0 selects the default: the mean
quadrat abundance at the smallest grain.

Example: grainmeta rarefy run.json --target 20 --out run_t20.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRarefy(args[0], target, out)
		},
	}

	cmd.Flags().IntVar(&target, "target", 0, "Rarefaction target in individuals (0 = default)")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default: overwrite the input file)")

	return cmd
}

func runRarefy(path string, target int, out string) error {
	result, err := readResult(path)
	if err != nil {
		return err
	}
	if out == "" {
		out = path
	}

	std := app.NewStandardizeService(internal.DefaultLogger)
	updated, err := std.Standardize(result, target)
	if err != nil {
		return fmt.Errorf("standardization failed: %w", err)
	}

	if err := writeResult(out, updated); err != nil {
		return err
	}
	fmt.Printf("Re-standardized at target %d: %d effect sizes written to %s\n",
		updated.RarefactionTarget, len(updated.Standardized), out)
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [result-file]",
		Short: "Export a stored run to an .xlsx workbook",
		Long: `Write study designs, effect sizes, and meta-analysis summaries as workbook
sheets under EXPORT_DIR.

Example: grainmeta export run.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runExport(ctx context.Context, path string) error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	result, err := readResult(path)
	if err != nil {
		return err
	}

	target := filepath.Join(appConfig.Export.Directory, result.Run.ID.String()+".xlsx")
	exporter := excel.NewExporter()
	if err := exporter.Export(ctx, result, target); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("Workbook written to %s\n", target)
	return nil
}

func newReportCmd() *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "report [result-file]",
		Short: "Render a markdown summary of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := readResult(args[0])
			if err != nil {
				return err
			}
			md := report.Build(result)
			if asHTML {
				os.Stdout.Write(report.RenderHTML(md))
				return nil
			}
			fmt.Print(md)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "Render the report as HTML")

	return cmd
}

// specFromConfig maps the environment defaults onto a batch spec.
func specFromConfig(sim config.SimulationConfig) app.BatchSpec {
	return app.BatchSpec{
		Studies:   sim.Studies,
		Seed:      sim.Seed,
		GrainMin:  sim.GrainMin,
		GrainMax:  sim.GrainMax,
		Quadrats:  sim.Quadrats,
		Placement: ecology.PlacementMethod(sim.Placement),
		Control: ecology.CommunityParams{
			PoolSize:    sim.PoolSize,
			Individuals: sim.Individuals,
			Shape:       sim.Shape,
			Spatial:     ecology.SpatialRandom,
		},
		Treatment: ecology.CommunityParams{
			PoolSize:    sim.TreatmentPoolSize,
			Individuals: sim.TreatmentIndividuals,
			Shape:       sim.Shape,
			Spatial:     ecology.SpatialRandom,
		},
		RarefactionTarget: sim.RarefactionTarget,
		Concurrency:       sim.Concurrency,
	}
}

// openRepository connects to PostgreSQL when DATABASE_URL is set; otherwise
// results stay in the result file only.
func openRepository(ctx context.Context, appConfig *config.Config) (ports.ResultRepository, func(), error) {
	if appConfig.Database.URL == "" {
		return nil, func() {}, nil
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	repo := postgres.NewResultRepository(db)
	if impl, ok := repo.(*postgres.ResultRepositoryImpl); ok {
		if err := impl.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repo, func() { db.Close() }, nil
}

func writeResult(path string, result models.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}

func readResult(path string) (models.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RunResult{}, fmt.Errorf("read result file: %w", err)
	}
	var result models.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.RunResult{}, fmt.Errorf("parse result file: %w", err)
	}
	return result, nil
}
