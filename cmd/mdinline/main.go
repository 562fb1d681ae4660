package main

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/arran4/mdinline"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/termenv"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
)

type options struct {
	in, out      string
	format       string
	width        int
	margin       int
	pt           float64
	theme        string
	styles       string
	softBreak    string
	baseURL      string
	imageBaseURL string
	fontRegular  string
	fontBold     string
	fontItalic   string
	fontMono     string
	concurrency  int
	color        string
	verbose      bool
}

func main() {
	var o options
	cmd := &cobra.Command{
		Use:           "mdinline",
		Short:         "Render Markdown inline content as text, ANSI or an image",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.in, "in", "", "Input Markdown file (default: stdin if empty)")
	f.StringVar(&o.out, "out", "", "Output file (default: stdout; png/jpg need a file)")
	f.StringVar(&o.format, "format", "", "Output format: text|ansi|png|jpg|dump (default: from --out extension, else ansi)")
	f.IntVar(&o.width, "width", 1024, "Output image width in pixels")
	f.IntVar(&o.margin, "margin", 48, "Margin in pixels")
	f.Float64Var(&o.pt, "pt", 16, "Base font size in points (paragraph)")
	f.StringVar(&o.theme, "theme", "light", "Theme: light|dark")
	f.StringVar(&o.styles, "styles", "", "Inline style overrides (.toml, .yaml or .yml)")
	f.StringVar(&o.softBreak, "soft-break", "space", "Soft break rendering: space|line")
	f.StringVar(&o.baseURL, "base-url", "", "Base URL for relative links")
	f.StringVar(&o.imageBaseURL, "image-base-url", "", "Base URL for relative images (default: --base-url)")
	f.StringVar(&o.fontRegular, "font", "", "Path to TTF for regular text (optional; default Go Regular)")
	f.StringVar(&o.fontBold, "fontbold", "", "Path to TTF for bold text (optional; default Go Bold)")
	f.StringVar(&o.fontItalic, "fontitalic", "", "Path to TTF for italic text (optional; default Go Italic)")
	f.StringVar(&o.fontMono, "fontmono", "", "Path to TTF for mono/code (optional; default Go Mono)")
	f.IntVar(&o.concurrency, "concurrency", 8, "Maximum concurrent image fetches (0 = unlimited)")
	f.StringVar(&o.color, "color", "auto", "ANSI colour: auto|always|never")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Log debug output to stderr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fatal(err)
	}
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	paths := []*string{&o.in, &o.out, &o.styles, &o.fontRegular, &o.fontBold, &o.fontItalic, &o.fontMono}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	format := strings.ToLower(o.format)
	if format == "" {
		format = formatFromExt(o.out)
	}

	var (
		data []byte
		err  error
	)
	if o.in == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(o.in)
	}
	if err != nil {
		return err
	}

	blocks, err := mdinline.ParseBlocks(data)
	if err != nil {
		return err
	}
	if format == "dump" {
		return writeOutput(o.out, stdout, func(w io.Writer) error {
			_, err := io.WriteString(w, litter.Sdump(blocks)+"\n")
			return err
		})
	}

	opts, err := documentOptions(o, logger)
	if err != nil {
		return err
	}
	var paragraphs []mdinline.Paragraph
	switch format {
	case "png", "jpg", "jpeg":
		resolved, err := mdinline.ResolveDocumentImages(ctx, blocks, opts)
		if err != nil {
			return err
		}
		logger.Debug("images resolved", "count", len(resolved))
		paragraphs = mdinline.BuildParagraphs(blocks, resolved, opts)
	default:
		paragraphs = mdinline.BuildParagraphs(blocks, nil, opts)
	}

	switch format {
	case "text":
		return writeOutput(o.out, stdout, func(w io.Writer) error {
			return writeParagraphs(w, paragraphs, termenv.Ascii)
		})
	case "ansi":
		profile := termenv.EnvColorProfile()
		switch o.color {
		case "always":
			profile = termenv.TrueColor
		case "never":
			profile = termenv.Ascii
		}
		return writeOutput(o.out, stdout, func(w io.Writer) error {
			return writeParagraphs(w, paragraphs, profile)
		})
	case "png", "jpg", "jpeg":
		if o.out == "" {
			return errors.New("--out is required for image output")
		}
		img, err := mdinline.Rasterize(paragraphs, opts.Raster)
		if err != nil {
			return err
		}
		return writeOutput(o.out, stdout, func(w io.Writer) error {
			if format == "png" {
				return png.Encode(w, img)
			}
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 92})
		})
	default:
		return errors.New("unsupported output format: " + format)
	}
}

func documentOptions(o options, logger *slog.Logger) (mdinline.DocumentOptions, error) {
	var opts mdinline.DocumentOptions
	mode, err := mdinline.ParseSoftBreakMode(o.softBreak)
	if err != nil {
		return opts, err
	}
	opts.SoftBreak = mode
	if opts.BaseURL, err = parseOptionalURL(o.baseURL); err != nil {
		return opts, err
	}
	if opts.ImageBaseURL, err = parseOptionalURL(o.imageBaseURL); err != nil {
		return opts, err
	}
	if o.styles != "" {
		cfg, err := mdinline.LoadStyleConfig(o.styles)
		if err != nil {
			return opts, err
		}
		styles, err := cfg.TextStyles()
		if err != nil {
			return opts, err
		}
		opts.Styles = &styles
	}

	th, err := mdinline.ThemeByName(o.theme)
	if err != nil {
		return opts, err
	}
	fonts, err := mdinline.LoadFonts(mdinline.FontConfig{
		RegularPath: o.fontRegular,
		BoldPath:    o.fontBold,
		ItalicPath:  o.fontItalic,
		MonoPath:    o.fontMono,
		SizeBase:    o.pt,
	})
	if err != nil {
		return opts, err
	}
	opts.Raster = mdinline.RasterOptions{
		Width:        o.width,
		Margin:       o.margin,
		BaseFontSize: o.pt,
		Theme:        th,
		Fonts:        fonts,
	}

	baseDir := ""
	if o.in != "" {
		baseDir = filepath.Dir(o.in)
	}
	opts.Provider = &mdinline.DefaultImageProvider{BaseDir: baseDir, Logger: logger}
	opts.Concurrency = o.concurrency
	opts.Logger = logger
	return opts, nil
}

func parseOptionalURL(s string) (*url.URL, error) {
	if s == "" {
		return nil, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", s, err)
	}
	return u, nil
}

func formatFromExt(out string) string {
	switch strings.ToLower(filepath.Ext(out)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpg"
	case ".txt":
		return "text"
	default:
		return "ansi"
	}
}

func writeParagraphs(w io.Writer, paragraphs []mdinline.Paragraph, profile termenv.Profile) error {
	for i, p := range paragraphs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		prefix := strings.Repeat("  ", p.Depth)
		if p.Quote {
			prefix += "> "
		}
		if p.Marker != "" {
			prefix += p.Marker + " "
		}
		if _, err := io.WriteString(w, prefix); err != nil {
			return err
		}
		if err := mdinline.WriteANSI(w, p.Text, profile); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("mdinline: " + err.Error() + "\n")
	os.Exit(1)
}
