package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/discovery"
	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/export"
)

type infoCmd struct {
	fs   *flag.FlagSet
	out  io.Writer
	path string
}

func parseInfoCmd(args []string, out io.Writer) (*infoCmd, error) {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	cmd := &infoCmd{fs: fs, out: out}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{fs: fs, msg: "info needs exactly one file"}
	}
	cmd.path = fs.Arg(0)
	return cmd, nil
}

func (c *infoCmd) Run() error {
	report, err := codec.ReadFile(c.path)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s: %d shapes declared, %d loaded, %d skipped", c.path, report.Declared, report.Loaded(), report.Skipped)
	if report.Truncated {
		fmt.Fprint(c.out, ", truncated")
	}
	fmt.Fprintln(c.out)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tBOUNDS\tSTROKE\tFILL\tWIDTH")
	for i, s := range report.Shapes {
		b := s.LogicalBounds()
		fmt.Fprintf(tw, "%d\t%s\t(%g,%g)-(%g,%g)\t%s\t%s\t%g\n",
			i, s.Kind, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y, s.StrokeColor.Hex(), s.FillColor.Hex(), s.StrokeWidth)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(tw, "!\t%v\n", e)
	}
	return tw.Flush()
}

type exportCmd struct {
	fs     *flag.FlagSet
	out    io.Writer
	path   string
	output string
	format export.Format
	opts   export.Options
}

func parseExportCmd(args []string, out io.Writer) (*exportCmd, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd := &exportCmd{fs: fs, out: out, opts: export.DefaultOptions()}

	format := fs.String("format", "png", "output format: png, pdf or thumb")
	background := fs.String("background", cmd.opts.Background.Hex(), "background color, #RRGGBB or #AARRGGBB")
	fs.IntVar(&cmd.opts.Width, "width", cmd.opts.Width, "canvas width")
	fs.IntVar(&cmd.opts.Height, "height", cmd.opts.Height, "canvas height")
	fs.StringVar(&cmd.output, "o", "", "output file (default: input name with the format's extension)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{fs: fs, msg: "export needs exactly one file"}
	}
	cmd.path = fs.Arg(0)

	var err error
	if cmd.format, err = export.ParseFormat(*format); err != nil {
		return nil, &UsageError{fs: fs, msg: err.Error()}
	}
	if cmd.opts.Background, err = document.ParseColor(*background); err != nil {
		return nil, &UsageError{fs: fs, msg: err.Error()}
	}
	if cmd.output == "" {
		cmd.output = strings.TrimSuffix(cmd.path, filepath.Ext(cmd.path)) + cmd.format.Extension()
	}
	return cmd, nil
}

func (c *exportCmd) Run() error {
	report, err := codec.ReadFile(c.path)
	if err != nil {
		return err
	}

	f, err := os.Create(c.output)
	if err != nil {
		return err
	}
	if err := export.Write(f, c.format, report.Shapes, c.opts); err != nil {
		f.Close()
		os.Remove(c.output)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "wrote %s (%d shapes)\n", c.output, report.Loaded())
	return nil
}

type sampleCmd struct {
	fs     *flag.FlagSet
	out    io.Writer
	output string
}

func parseSampleCmd(args []string, out io.Writer) (*sampleCmd, error) {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	cmd := &sampleCmd{fs: fs, out: out}
	fs.StringVar(&cmd.output, "o", "sample"+codec.Extension, "output file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{fs: fs, msg: "sample takes no arguments"}
	}
	return cmd, nil
}

func (c *sampleCmd) Run() error {
	shapes := document.NewSampleDrawing()
	path, err := codec.WriteFile(c.output, shapes)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "wrote %s (%d shapes)\n", path, len(shapes))
	return nil
}

type discoverCmd struct {
	fs      *flag.FlagSet
	out     io.Writer
	timeout time.Duration
}

func parseDiscoverCmd(args []string, out io.Writer) (*discoverCmd, error) {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	cmd := &discoverCmd{fs: fs, out: out}
	fs.DurationVar(&cmd.timeout, "timeout", 2*time.Second, "how long to listen for answers")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{fs: fs, msg: "discover takes no arguments"}
	}
	return cmd, nil
}

func (c *discoverCmd) Run() error {
	peers, err := discovery.Browse(c.timeout)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Fprintln(c.out, "no servers found")
		return nil
	}
	for _, p := range peers {
		fmt.Fprintf(c.out, "%s\t%s\n", p.Addr, p.Instance)
	}
	return nil
}
