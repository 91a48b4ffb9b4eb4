// Package batch binds record values into a template and renders one image
// per record.
package batch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/youruser/cardbatch/internal/records"
	"github.com/youruser/cardbatch/internal/template"
)

// Snapshotter renders the current state of a template as encoded bytes.
type Snapshotter interface {
	Snapshot(tpl *template.Template) ([]byte, error)
}

type Options struct {
	// BlankMissing clears a placeholder when its field is missing or empty
	// in a record. Off by default: the previous record's value carries over.
	BlankMissing bool
}

// RenderedImage is the PNG snapshot of one record.
type RenderedImage struct {
	Index int
	Data  []byte
}

// RecordError reports which record stopped a batch.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string { return fmt.Sprintf("record %d: %v", e.Index, e.Err) }
func (e *RecordError) Unwrap() error { return e.Err }

type Driver struct {
	snap Snapshotter
	opts Options
}

func NewDriver(s Snapshotter, opts Options) *Driver {
	return &Driver{snap: s, opts: opts}
}

// Bind copies rec's values into the matching placeholders and returns how
// many were substituted. Placeholders are changed in place and keep their
// text when the record has nothing for them.
func (d *Driver) Bind(tpl *template.Template, rec records.Record) int {
	n := 0
	for _, p := range tpl.Placeholders() {
		if p.FieldID == "" {
			continue
		}
		if v, ok := rec.Get(p.FieldID); ok && v != "" {
			p.Text = v
			n++
			continue
		}
		if d.opts.BlankMissing {
			p.Text = ""
		}
	}
	return n
}

// Run renders every record of rs in order. The template keeps the last
// record's values afterwards. Any failure aborts the whole batch.
func (d *Driver) Run(ctx context.Context, tpl *template.Template, rs records.RecordSet) ([]RenderedImage, error) {
	start := time.Now()
	log := logger().With("file", rs.Name, "records", rs.Len())
	log.Info("batch started")

	out := make([]RenderedImage, 0, rs.Len())
	for i, rec := range rs.Records {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", "at", i, "err", err)
			return nil, err
		}
		bound := d.Bind(tpl, rec)
		data, err := d.snap.Snapshot(tpl)
		if err != nil {
			log.Error("batch failed", "at", i, "err", err)
			return nil, &RecordError{Index: i, Err: err}
		}
		log.Debug("record rendered", "index", i, "bound", bound, "bytes", len(data))
		out = append(out, RenderedImage{Index: i, Data: data})
	}

	log.Info("batch finished", "images", len(out), "elapsed", time.Since(start))
	return out, nil
}

// Single renders one record, the degenerate batch of size one.
func (d *Driver) Single(ctx context.Context, tpl *template.Template, rec records.Record) (RenderedImage, error) {
	imgs, err := d.Run(ctx, tpl, records.RecordSet{Records: []records.Record{rec}})
	if err != nil {
		return RenderedImage{}, err
	}
	return imgs[0], nil
}

// Preview snapshots the template as it stands, without binding.
func (d *Driver) Preview(tpl *template.Template) ([]byte, error) {
	return d.snap.Snapshot(tpl)
}

// Sample writes a data file whose header lists every placeholder field id
// and whose single row is empty.
func Sample(w io.Writer, tpl *template.Template, f records.Format) error {
	return records.WriteSample(w, tpl.FieldIDs(), f)
}

var (
	dataURLPrefix = regexp.MustCompile(`^data:image/(png|jpg|jpeg);base64,`)

	ErrNotDataURL = errors.New("not an image data URL")
)

// StripDataURL removes the data:image/...;base64, prefix and decodes the
// payload.
func StripDataURL(s string) ([]byte, error) {
	loc := dataURLPrefix.FindStringIndex(s)
	if loc == nil {
		return nil, ErrNotDataURL
	}
	b, err := base64.StdEncoding.DecodeString(s[loc[1]:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	return b, nil
}
