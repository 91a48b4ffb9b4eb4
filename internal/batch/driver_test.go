package batch

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imagepkg "github.com/youruser/cardbatch/internal/image"
	"github.com/youruser/cardbatch/internal/records"
	"github.com/youruser/cardbatch/internal/template"
)

// textSnapshotter encodes the placeholder texts instead of pixels.
type textSnapshotter struct {
	failAt int
	calls  int
}

func (s *textSnapshotter) Snapshot(tpl *template.Template) ([]byte, error) {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return nil, errors.New("encoder exploded")
	}
	var parts []string
	for _, p := range tpl.Placeholders() {
		parts = append(parts, p.Text)
	}
	return []byte(strings.Join(parts, "/")), nil
}

func texts(imgs []RenderedImage) []string {
	out := make([]string, len(imgs))
	for i, img := range imgs {
		out[i] = string(img.Data)
	}
	return out
}

func nameIDTemplate() *template.Template {
	tpl := template.New(0)
	tpl.AddPlaceholder("name")
	tpl.AddPlaceholder("id")
	return tpl
}

func TestRunCarriesOverMissingValues(t *testing.T) {
	tpl := nameIDTemplate()
	rs := records.RecordSet{Records: []records.Record{
		records.NewRecord("name", "Alice", "id", "1"),
		records.NewRecord("name", "Bob", "id", ""),
		records.NewRecord("name", "Carol"),
	}}

	imgs, err := NewDriver(&textSnapshotter{}, Options{}).Run(context.Background(), tpl, rs)
	require.NoError(t, err)

	want := []string{"Alice/1", "Bob/1", "Carol/1"}
	if diff := cmp.Diff(want, texts(imgs)); diff != "" {
		t.Fatalf("rendered texts mismatch (-want +got):\n%s", diff)
	}
	for i, img := range imgs {
		assert.Equal(t, i, img.Index)
	}

	ps := tpl.Placeholders()
	assert.Equal(t, "Carol", ps[0].Text, "last record stays on the template")
	assert.Equal(t, "1", ps[1].Text)
}

func TestRunBlankMissing(t *testing.T) {
	tpl := nameIDTemplate()
	rs := records.RecordSet{Records: []records.Record{
		records.NewRecord("name", "Alice", "id", "1"),
		records.NewRecord("name", "Bob", "id", ""),
	}}

	imgs, err := NewDriver(&textSnapshotter{}, Options{BlankMissing: true}).Run(context.Background(), tpl, rs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice/1", "Bob/"}, texts(imgs))
}

func TestBindExactOverwrite(t *testing.T) {
	tpl := nameIDTemplate()
	d := NewDriver(&textSnapshotter{}, Options{})

	n := d.Bind(tpl, records.NewRecord("name", "  Dr. Zoë O'Hara  ", "other", "x"))
	assert.Equal(t, 1, n)
	ps := tpl.Placeholders()
	assert.Equal(t, "  Dr. Zoë O'Hara  ", ps[0].Text)
	assert.Equal(t, "id", ps[1].Text, "untouched placeholder keeps its text")
}

func TestRunCountMatchesRecords(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		rs := records.RecordSet{}
		for i := 0; i < n; i++ {
			rs.Records = append(rs.Records, records.NewRecord("name", strings.Repeat("x", i+1)))
		}
		imgs, err := NewDriver(&textSnapshotter{}, Options{}).Run(context.Background(), nameIDTemplate(), rs)
		require.NoError(t, err)
		assert.Len(t, imgs, n)
	}
}

func TestRunFailureIsFatal(t *testing.T) {
	rs := records.RecordSet{Records: []records.Record{
		records.NewRecord("name", "a"),
		records.NewRecord("name", "b"),
		records.NewRecord("name", "c"),
	}}
	snap := &textSnapshotter{failAt: 2}
	imgs, err := NewDriver(snap, Options{}).Run(context.Background(), nameIDTemplate(), rs)

	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Index)
	assert.Nil(t, imgs)
	assert.Equal(t, 2, snap.calls, "no records rendered after the failure")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rs := records.RecordSet{Records: []records.Record{records.NewRecord("name", "a")}}

	_, err := NewDriver(&textSnapshotter{}, Options{}).Run(ctx, nameIDTemplate(), rs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSingle(t *testing.T) {
	img, err := NewDriver(&textSnapshotter{}, Options{}).Single(context.Background(), nameIDTemplate(), records.NewRecord("id", "9"))
	require.NoError(t, err)
	assert.Equal(t, "name/9", string(img.Data))
}

func TestRunWithoutPlaceholdersRendersIdenticalImages(t *testing.T) {
	fm, err := imagepkg.NewFontManager("")
	require.NoError(t, err)
	tpl := template.New(0)
	require.NoError(t, tpl.SetBackground(imagepkg.Blank(320, 200)))

	rs := records.RecordSet{Records: []records.Record{
		records.NewRecord("name", "a"),
		records.NewRecord("name", "b"),
		records.NewRecord("name", "c"),
	}}
	imgs, err := NewDriver(imagepkg.NewRenderer(fm), Options{}).Run(context.Background(), tpl, rs)
	require.NoError(t, err)
	require.Len(t, imgs, 3)
	assert.Equal(t, imgs[0].Data, imgs[1].Data)
	assert.Equal(t, imgs[1].Data, imgs[2].Data)
}

func TestSampleHeader(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Sample(&buf, nameIDTemplate(), records.FormatCSV))
	assert.Equal(t, "name,id\n,\n", buf.String())
}

func TestStripDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	for _, prefix := range []string{"data:image/png;base64,", "data:image/jpg;base64,"} {
		b, err := StripDataURL(prefix + base64.StdEncoding.EncodeToString(payload))
		require.NoError(t, err)
		assert.Equal(t, payload, b)
	}

	_, err := StripDataURL("data:text/plain;base64,aGk=")
	assert.ErrorIs(t, err, ErrNotDataURL)
	_, err = StripDataURL("data:image/png;base64,!!!")
	assert.ErrorIs(t, err, ErrNotDataURL)
}
