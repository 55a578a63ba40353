package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/marigram-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/marigram-tracker/internal/core/parsefields"
)

func newOCRCmd(g *globalOptions) *cobra.Command {
	var (
		engine   string
		psm, oem int
		lang     string
		showText bool
	)
	cmd := &cobra.Command{
		Use:   "ocr <image>",
		Short: "OCR one scan and show how each rendering scored",
		Long: `Runs every binarized rendering of a single scan through the OCR engine,
prints the anchor score and confidence of each, and the fields parsed from the
winner. Nothing is validated against the vocabularies and nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			set := cmd.Flags().Changed
			if set("engine") {
				cfg.OCR.Engine = engine
			}
			if set("psm") {
				cfg.OCR.PSM = psm
			}
			if set("oem") {
				cfg.OCR.OEM = oem
			}
			if set("lang") {
				cfg.OCR.Lang = lang
			}
			logger := setupLogger(cfg)
			ctx := cmd.Context()

			eng := newEngine(cfg, logger)
			if err := eng.Check(ctx); err != nil {
				return err
			}
			img, err := ocr.LoadImage(args[0])
			if err != nil {
				return err
			}
			x := ocr.NewExtractor(eng, ocr.Options{
				Lang:        cfg.OCR.Lang,
				PSM:         cfg.OCR.PSM,
				OEM:         cfg.OCR.OEM,
				TessdataDir: cfg.OCR.TessdataDir,
			}, logger)
			best, err := x.BestOf(ctx, img)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VARIANT\tANCHORS\tCONF\tCHARS\t")
			for _, c := range best.Candidates {
				mark := ""
				if c.Variant == best.Variant {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%.1f\t%d\t%s\n", c.Variant, c.Anchors, c.Confidence, len(c.Text), mark)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			text := ocr.Normalize(best.Text)
			t := parsefields.ParseTriplet(parsefields.Lines(text))
			fmt.Fprintf(out, "\ntriplet (%s): %q / %q / %q\n", strategyName(t.Strategy), t.Country, t.State, t.Location)
			fmt.Fprintf(out, "date:  %q\n", parsefields.ParseDate(text))
			fmt.Fprintf(out, "scale: %q\n", parsefields.ParseScale(text))
			if showText {
				fmt.Fprintf(out, "\n%s\n", text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "OCR engine: cli or gosseract")
	cmd.Flags().IntVar(&psm, "psm", 6, "Tesseract page segmentation mode")
	cmd.Flags().IntVar(&oem, "oem", 3, "Tesseract OCR engine mode")
	cmd.Flags().StringVar(&lang, "lang", "", "Tesseract language")
	cmd.Flags().BoolVar(&showText, "text", false, "Also print the normalized text of the winner")
	return cmd
}

func strategyName(s parsefields.Strategy) string {
	if s == parsefields.StrategyNone {
		return "none"
	}
	return string(s)
}
