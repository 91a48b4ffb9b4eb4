package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/youruser/cardbatch/internal/archive"
	"github.com/youruser/cardbatch/internal/batch"
	"github.com/youruser/cardbatch/internal/config"
	imagepkg "github.com/youruser/cardbatch/internal/image"
	"github.com/youruser/cardbatch/internal/records"
	"github.com/youruser/cardbatch/internal/template"
	"github.com/youruser/cardbatch/internal/util"
)

type renderOptions struct {
	template string
	data     string
	out      string
	format   string
}

func newRenderCmd() *cobra.Command {
	var o renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one image per data row and package them",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runRender(cmd.Context(), configFrom(cmd.Context()), o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d images to %s\n", n, o.out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.template, "template", "t", "", "template YAML file")
	cmd.Flags().StringVarP(&o.data, "data", "d", "", "CSV or XLSX data file")
	cmd.Flags().StringVarP(&o.out, "out", "o", "images.zip", "output archive")
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "zip or pdf (default from --out extension)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runRender(ctx context.Context, cfg *config.Config, o renderOptions) (int, error) {
	format := o.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(o.out), ".")
	}
	af, err := archive.ParseFormat(format)
	if err != nil {
		return 0, err
	}

	tpl, err := loadTemplate(o.template, cfg.Render.MaxDimension)
	if err != nil {
		return 0, err
	}
	rs, err := readRecords(o.data)
	if err != nil {
		return 0, err
	}

	fonts, err := imagepkg.NewFontManager(cfg.Render.FontPath)
	if err != nil {
		return 0, err
	}
	driver := batch.NewDriver(imagepkg.NewRenderer(fonts), batch.Options{BlankMissing: cfg.Render.BlankMissing})
	imgs, err := driver.Run(ctx, tpl, rs)
	if err != nil {
		return 0, err
	}

	data := make([][]byte, len(imgs))
	for i, img := range imgs {
		data[i] = img.Data
	}
	w, h := tpl.Size()
	var buf bytes.Buffer
	if err := archive.Write(&buf, af, data, w, h); err != nil {
		return 0, err
	}
	if err := util.WriteFile(o.out, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write %s: %w", o.out, err)
	}
	return len(imgs), nil
}

type sampleOptions struct {
	template string
	out      string
	format   string
}

func newSampleCmd() *cobra.Command {
	var o sampleOptions
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a data file with a header for every template field",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(configFrom(cmd.Context()), o, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&o.template, "template", "t", "", "template YAML file")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "csv", "csv or xlsx")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func runSample(cfg *config.Config, o sampleOptions, stdout io.Writer) error {
	f, err := records.ParseFormat(o.format)
	if err != nil {
		return err
	}
	spec, err := readSpec(o.template)
	if err != nil {
		return err
	}
	// placeholders are all a sample needs, the background is not loaded
	tpl := template.New(cfg.Render.MaxDimension)
	if err := tpl.ApplySpec(spec); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := batch.Sample(&buf, tpl, f); err != nil {
		return err
	}
	if o.out == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	return util.WriteFile(o.out, buf.Bytes())
}

func readSpec(path string) (template.Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return template.Spec{}, err
	}
	return template.ParseSpec(b)
}

// loadTemplate reads a template file; its background path is resolved
// relative to the file.
func loadTemplate(path string, maxDim int) (*template.Template, error) {
	spec, err := readSpec(path)
	if err != nil {
		return nil, err
	}
	if spec.MaxDimension > 0 {
		maxDim = spec.MaxDimension
	}
	tpl := template.New(maxDim)

	var bg image.Image = imagepkg.Blank(imagepkg.BlankWidth, imagepkg.BlankHeight)
	if spec.Background != "" {
		bgPath := spec.Background
		if !filepath.IsAbs(bgPath) {
			bgPath = filepath.Join(filepath.Dir(path), bgPath)
		}
		f, err := os.Open(bgPath)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		defer f.Close()
		if bg, err = imagepkg.DecodeImage(f); err != nil {
			return nil, fmt.Errorf("background %s: %w", bgPath, err)
		}
	}
	if err := tpl.SetBackground(bg); err != nil {
		return nil, err
	}
	if err := tpl.ApplySpec(spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tpl, nil
}

func readRecords(path string) (records.RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return records.RecordSet{}, err
	}
	defer f.Close()
	return records.Parse(f, filepath.Base(path))
}
