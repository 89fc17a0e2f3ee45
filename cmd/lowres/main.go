// Command lowres builds the lookahead representation of an image and
// reports or exports it.
//
// Usage:
//
//	lowres info [options] <image>            Print lowres geometry, table sizes and plane statistics
//	lowres dump [options] -o out.lwrs <image> Write the four half-pel planes, zstd-compressed
//
// Inputs may be PNG, JPEG, GIF, BMP, TIFF or WebP; use "-" for stdin.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/lookahead"
	"github.com/deepteams/lookahead/internal/dsp"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:], os.Stdout)
	case "dump":
		err = runDump(os.Args[2:], os.Stderr)
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "lowres: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "lowres: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  lowres info [options] <image>   Print lowres geometry and table sizes
  lowres dump [options] <image>   Write the half-pel planes to a compressed file

Use "-" as input to read from stdin.

Run "lowres <command> -h" for command-specific options.
`)
}

// frameFlags are the options shared by every subcommand.
type frameFlags struct {
	bframes *int
	margin  *int
	cuSize  *int
	verbose *bool
}

func addFrameFlags(fs *flag.FlagSet) frameFlags {
	return frameFlags{
		bframes: fs.Int("bframes", 3, fmt.Sprintf("lookahead window depth 0-%d", lookahead.MaxBFrames)),
		margin:  fs.Int("margin", lookahead.DefaultMargin, "border margin in samples"),
		cuSize:  fs.Int("cu", lookahead.DefaultCUSize, "coding-unit size in full-resolution samples"),
		verbose: fs.Bool("v", false, "log lowres lifecycle to stderr"),
	}
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// buildFrame decodes the input image and returns an initialised lowres
// frame together with its source picture. The caller must Destroy it.
func buildFrame(inputPath string, ff frameFlags) (*lookahead.Lowres, *lookahead.Picture, error) {
	if *ff.verbose {
		lookahead.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	in, err := openInput(inputPath)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding input: %w", err)
	}

	pic, err := lookahead.PictureFromImage(img, lookahead.PictureConfig{
		MarginX: *ff.margin,
		MarginY: *ff.margin,
		CUSize:  *ff.cuSize,
	})
	if err != nil {
		return nil, nil, err
	}
	lr, err := lookahead.NewLowres(pic, *ff.bframes, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := lr.Init(pic); err != nil {
		lr.Destroy()
		return nil, nil, err
	}
	return lr, pic, nil
}

// planeMean returns the average visible sample of the plane at (qx, qy).
func planeMean(lr *lookahead.Lowres, qx, qy int) float64 {
	var sum int
	for y := 0; y < lr.Lines; y++ {
		for _, v := range lr.Row(qx, qy, y) {
			sum += int(v)
		}
	}
	return float64(sum) / float64(lr.Width*lr.Lines)
}

// --- info ---

func runInfo(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	ff := addFrameFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("info: missing input file\nUsage: lowres info [options] <image>")
	}
	inputPath := fs.Arg(0)
	if strings.EqualFold(filepath.Ext(inputPath), ".lwrs") {
		return infoDump(inputPath, w)
	}

	lr, pic, err := buildFrame(inputPath, ff)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	defer lr.Destroy()

	rowR, rowC := lr.RowSatds.Dims()
	mvR, mvC := lr.MVs.Dims()
	fmt.Fprintf(w, "Input:        %s\n", inputPath)
	fmt.Fprintf(w, "Source:       %dx%d, margins %dx%d, CU %d (%d CUs, %d rows)\n",
		pic.Width(), pic.Height(), pic.MarginX(), pic.MarginY(), pic.CUSize(), pic.NumCUs(), pic.CURows())
	fmt.Fprintf(w, "Lowres:       %dx%d, stride %d, plane %d bytes\n", lr.Width, lr.Lines, lr.Stride, lr.PlaneSize())
	fmt.Fprintf(w, "Window:       %d B-frames\n", lr.BFrames)
	fmt.Fprintf(w, "Intra costs:  %d\n", len(lr.IntraCost))
	fmt.Fprintf(w, "Row costs:    %dx%d x %d\n", rowR, rowC, lr.RowSatds.Len())
	fmt.Fprintf(w, "Block costs:  %dx%d x %d\n", rowR, rowC, lr.LowresCosts.Len())
	fmt.Fprintf(w, "Vectors:      %dx%d x %d\n", mvR, mvC, lr.MVs.Len())
	fmt.Fprintf(w, "Memory:       %d bytes\n", lr.Footprint())
	fmt.Fprintf(w, "Plane means:  full %.2f, h %.2f, v %.2f, hv %.2f\n",
		planeMean(lr, 0, 0), planeMean(lr, 2, 0), planeMean(lr, 0, 2), planeMean(lr, 2, 2))
	fmt.Fprintf(w, "SIMD:         %s\n", dsp.Features())
	return nil
}

// infoDump describes a file written by dump.
func infoDump(inputPath string, w io.Writer) error {
	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	hdr, planes, err := readDump(in)
	if err != nil {
		return fmt.Errorf("info: %s: %w", inputPath, err)
	}
	origin := int(hdr.MarginY*hdr.Stride + hdr.MarginX)
	var means [4]float64
	for i, p := range planes {
		var sum int
		for y := 0; y < int(hdr.Lines); y++ {
			row := p[origin+y*int(hdr.Stride):]
			for _, v := range row[:hdr.Width] {
				sum += int(v)
			}
		}
		means[i] = float64(sum) / float64(hdr.Width*hdr.Lines)
	}
	fmt.Fprintf(w, "Dump:         %s\n", inputPath)
	fmt.Fprintf(w, "Lowres:       %dx%d, stride %d, margins %dx%d, plane %d bytes\n",
		hdr.Width, hdr.Lines, hdr.Stride, hdr.MarginX, hdr.MarginY, hdr.PlaneSize)
	fmt.Fprintf(w, "Plane means:  full %.2f, h %.2f, v %.2f, hv %.2f\n", means[0], means[1], means[2], means[3])
	return nil
}

// --- dump ---

func runDump(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	ff := addFrameFlags(fs)
	output := fs.String("o", "", `output path (default: <input>.lwrs, "-" for stdout)`)
	level := fs.String("level", "default", "zstd level: fastest/default/better/best")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("dump: missing input file\nUsage: lowres dump [options] <image>")
	}
	inputPath := fs.Arg(0)

	lvl, err := parseLevel(*level)
	if err != nil {
		return err
	}

	lr, _, err := buildFrame(inputPath, ff)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer lr.Destroy()

	outputPath := *output
	if outputPath == "-" {
		return writeDump(os.Stdout, lr, lvl)
	}
	if outputPath == "" {
		if inputPath == "-" {
			outputPath = "output.lwrs"
		} else {
			base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
			outputPath = base + ".lwrs"
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := writeDump(out, lr, lvl); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("dump: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}

	fi, _ := os.Stat(outputPath)
	fmt.Fprintf(w, "Dumped %s → %s (%d planes of %d bytes, %d bytes compressed)\n",
		inputPath, outputPath, 4, lr.PlaneSize(), fi.Size())
	return nil
}
