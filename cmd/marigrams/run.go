package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marigram-tracker/constants"
	"github.com/joseph-ayodele/marigram-tracker/internal/common"
	"github.com/joseph-ayodele/marigram-tracker/internal/core"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/review"
	"github.com/joseph-ayodele/marigram-tracker/internal/drive"
	"github.com/joseph-ayodele/marigram-tracker/internal/export"
	"github.com/joseph-ayodele/marigram-tracker/internal/geocode"
	"github.com/joseph-ayodele/marigram-tracker/internal/ingest"
	"github.com/joseph-ayodele/marigram-tracker/internal/ledger"
	"github.com/joseph-ayodele/marigram-tracker/internal/reference"
)

type runFlags struct {
	folderIDs           []string
	dir                 string
	outXLSX             string
	cacheDir            string
	saveOCR             string
	logPath             string
	credentials         string
	iocCacheHTML        string
	resume              bool
	interactive         bool
	geocode             bool
	microfilmName       string
	microfilmFromFolder bool
	maxFiles            int
	shuffle             bool
	seed                int64
	sort                bool
	psm                 int
	oem                 int
	lang                string
	engine              string
	itemTimeout         time.Duration
}

func newRunCmd(g *globalOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every marigram scan under a Drive folder or local directory",
		Example: `  # Local scans, resumable, reviewing each record
  marigrams run --dir ./scans --out-xlsx marigrams.xlsx --resume --interactive

  # Drive folders, progress kept in SQLite
  marigrams run --folder-ids 1AbC,1DeF --out-xlsx marigrams.xlsx --log-path progress.db --resume`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := setupLogger(cfg)
			return executeRun(cmd.Context(), cfg, f.itemTimeout, cmd.OutOrStdout(), logger)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&f.folderIDs, "folder-ids", nil, "Drive folder ids to walk (comma separated)")
	fl.StringVar(&f.dir, "dir", "", "Local directory of scans (instead of Drive)")
	fl.StringVar(&f.outXLSX, "out-xlsx", "", "Output workbook")
	fl.StringVar(&f.cacheDir, "cache-dir", "", "Download cache for Drive files")
	fl.StringVar(&f.saveOCR, "save-ocr", "", "Directory for raw OCR text and the winning rendering")
	fl.StringVar(&f.logPath, "log-path", "", "Progress log: .jsonl file, .db/.sqlite file or postgres:// DSN")
	fl.StringVar(&f.credentials, "credentials", "", "Google credentials JSON file")
	fl.StringVar(&f.iocCacheHTML, "ioc-cache-html", "", "Cache file for the IOC station list")
	fl.BoolVar(&f.resume, "resume", false, "Skip scans the progress log marks ok")
	fl.BoolVar(&f.interactive, "interactive", false, "Review every record on the terminal before saving")
	fl.BoolVar(&f.geocode, "enable-geocode", false, "Look up LATITUDE/LONGITUDE with Nominatim")
	fl.StringVar(&f.microfilmName, "microfilm-name", "", "Value for MICROFILM_NAME")
	fl.BoolVar(&f.microfilmFromFolder, "microfilm-name-from-folder", false, "Use the top-level folder as MICROFILM_NAME")
	fl.IntVar(&f.maxFiles, "max-files", 0, "Stop after this many scans (0 = all)")
	fl.BoolVar(&f.shuffle, "shuffle", false, "Process scans in a seeded random order")
	fl.Int64Var(&f.seed, "seed", 0, "Seed for --shuffle")
	fl.BoolVar(&f.sort, "sort", false, "Process scans sorted by path")
	fl.IntVar(&f.psm, "psm", 6, "Tesseract page segmentation mode")
	fl.IntVar(&f.oem, "oem", 3, "Tesseract OCR engine mode")
	fl.StringVar(&f.lang, "lang", "", "Tesseract language")
	fl.StringVar(&f.engine, "engine", "", "OCR engine: cli or gosseract")
	fl.DurationVar(&f.itemTimeout, "item-timeout", 0, "Give up on a single scan after this long (0 = no limit)")
	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *common.Config) {
	set := cmd.Flags().Changed
	if set("folder-ids") {
		cfg.Source.FolderIDs = f.folderIDs
	}
	if set("dir") {
		cfg.Source.Dir = f.dir
	}
	if set("out-xlsx") {
		cfg.Output.XLSXPath = f.outXLSX
	}
	if set("cache-dir") {
		cfg.Source.CacheDir = f.cacheDir
	}
	if set("save-ocr") {
		cfg.Output.SaveOCRDir = f.saveOCR
	}
	if set("log-path") {
		cfg.Output.LogPath = f.logPath
	}
	if set("credentials") {
		cfg.Source.CredentialsFile = f.credentials
	}
	if set("ioc-cache-html") {
		cfg.Reference.IOCCacheHTML = f.iocCacheHTML
	}
	if set("resume") {
		cfg.Run.Resume = f.resume
	}
	if set("interactive") {
		cfg.Run.Interactive = f.interactive
	}
	if set("enable-geocode") {
		cfg.Geocode.Enabled = f.geocode
	}
	if set("microfilm-name") {
		cfg.Run.MicrofilmName = f.microfilmName
	}
	if set("microfilm-name-from-folder") {
		cfg.Run.MicrofilmFromFolder = f.microfilmFromFolder
	}
	if set("max-files") {
		cfg.Run.MaxFiles = f.maxFiles
	}
	if set("shuffle") {
		cfg.Run.Shuffle = f.shuffle
	}
	if set("seed") {
		cfg.Run.Seed = f.seed
	}
	if set("sort") {
		cfg.Run.Sort = f.sort
	}
	if set("psm") {
		cfg.OCR.PSM = f.psm
	}
	if set("oem") {
		cfg.OCR.OEM = f.oem
	}
	if set("lang") {
		cfg.OCR.Lang = f.lang
	}
	if set("engine") {
		cfg.OCR.Engine = f.engine
	}
}

func executeRun(ctx context.Context, cfg *common.Config, itemTimeout time.Duration, out io.Writer, logger *slog.Logger) error {
	ctx = common.WithRunID(ctx, uuid.NewString())
	runLog := common.LoggerFrom(ctx, logger)
	runLog.Info("run.start", "out_xlsx", cfg.Output.XLSXPath, "log_path", cfg.Output.LogPath, "engine", cfg.OCR.Engine)

	engine := newEngine(cfg, logger)
	if err := engine.Check(ctx); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Reference.HTTPTimeout}
	noaa, err := reference.NewNOAAClient(cfg.Reference.NOAABaseURL, httpClient, logger)
	if err != nil {
		return err
	}
	var stations reference.StationSource
	if cfg.Reference.IOCListURL != "" {
		stations = reference.NewStationDirectory(cfg.Reference.IOCListURL, cfg.Reference.IOCCacheHTML, httpClient, logger)
	}
	ref, err := reference.Build(ctx, noaa, stations, logger)
	if err != nil {
		return err
	}
	runLog.Info("run.reference.ready",
		"countries", ref.Countries.Len(),
		"states", ref.States.Len(),
		"locations", ref.Locations.Len(),
		"regions", ref.Regions.Len(),
		"stations", ref.Stations.Len(),
	)

	src, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	progress, err := ledger.Open(ctx, cfg.Output.LogPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := progress.Close(); cerr != nil {
			runLog.Error("run.ledger.close_failed", "error", cerr)
		}
	}()

	store := export.NewXLSXStore(cfg.Output.XLSXPath, logger)
	if err := store.Ensure(ctx); err != nil {
		return err
	}

	var geocoder geocode.Geocoder
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewNominatim(cfg.Geocode.URL, cfg.Geocode.UserAgent, httpClient, logger)
	}

	var gate *review.Gate
	if cfg.Run.Interactive {
		if !review.IsInteractive() {
			runLog.Warn("run.review.stdin_not_terminal")
		}
		gate = review.NewGate(review.NewTerminalPrompter(os.Stdin, out), logger)
	}

	extractor := ocr.NewExtractor(engine, ocr.Options{
		Lang:        cfg.OCR.Lang,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)
	proc := core.NewProcessor(logger, extractor, ref, geocoder, gate, core.ProcessorConfig{
		SaveOCRDir:          cfg.Output.SaveOCRDir,
		MicrofilmName:       core.DefaultMicrofilmName(cfg.Run.MicrofilmName, cfg.Run.MicrofilmFromFolder),
		MicrofilmFromFolder: cfg.Run.MicrofilmFromFolder,
	})

	runner := core.NewRunner(logger, src, proc, progress,
		export.NewBatchWriter(store, constants.DefaultBatchSize, logger),
		core.WithResume(cfg.Run.Resume),
		core.WithSelection(ingest.Selection{
			Sort:     cfg.Run.Sort,
			Shuffle:  cfg.Run.Shuffle,
			Seed:     cfg.Run.Seed,
			MaxFiles: cfg.Run.MaxFiles,
		}),
		core.WithOCRParams(cfg.OCR.PSM, cfg.OCR.OEM),
		core.WithProcessTimeout(itemTimeout),
	)

	st, runErr := runner.Run(ctx)
	printSummary(out, st, cfg)
	return runErr
}

func newEngine(cfg *common.Config, logger *slog.Logger) ocr.Engine {
	if cfg.OCR.Engine == common.EngineGosseract {
		return ocr.NewGosseract(logger)
	}
	return ocr.NewTesseractCLI(cfg.OCR.Tesseract, logger)
}

func newSource(ctx context.Context, cfg *common.Config, logger *slog.Logger) (ingest.Source, error) {
	if cfg.Source.Dir != "" {
		return ingest.NewDirSource(cfg.Source.Dir, logger), nil
	}
	client, err := drive.New(ctx, cfg.Source.CredentialsFile, logger)
	if err != nil {
		return nil, err
	}
	return ingest.NewDriveSource(client, cfg.Source.FolderIDs, cfg.Source.CacheDir, logger), nil
}

func printSummary(out io.Writer, st core.Stats, cfg *common.Config) {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Scans listed:   %d (selected %d)\n", st.Listed, st.Selected)
	fmt.Fprintf(out, "Already done:   %d\n", st.Resumed)
	fmt.Fprintf(out, "Saved:          %s (%d flagged for review)\n", ok.Sprint(st.OK), st.NeedsReview)
	fmt.Fprintf(out, "Failed:         %s (%d declined in review)\n", bad.Sprint(st.Errors), st.Declined)
	fmt.Fprintf(out, "Rows written:   %d\n", st.Flushed)
	if st.Unlogged > 0 {
		fmt.Fprintf(out, "Not logged:     %s\n", bad.Sprint(st.Unlogged))
	}
	fmt.Fprintf(out, "\nWorkbook:       %s\n", cfg.Output.XLSXPath)
	fmt.Fprintf(out, "Progress log:   %s\n", cfg.Output.LogPath)
}
