package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardbatch/internal/archive"
	"github.com/youruser/cardbatch/internal/batch"
	imagepkg "github.com/youruser/cardbatch/internal/image"
	"github.com/youruser/cardbatch/internal/records"
	"github.com/youruser/cardbatch/internal/session"
	"github.com/youruser/cardbatch/internal/template"
	"github.com/youruser/cardbatch/internal/util"
)

type Options struct {
	MaxDimension   int
	Background     image.Image
	MaxUploadBytes int64
	FetchTimeout   time.Duration
	Logger         *slog.Logger
}

// Server serves the template editing and export API.
type Server struct {
	store        *session.Store
	driver       *batch.Driver
	maxDim       int
	background   image.Image
	maxUpload    int64
	fetchTimeout time.Duration
	log          *slog.Logger
}

func NewServer(store *session.Store, driver *batch.Driver, opts Options) *Server {
	bg := opts.Background
	if bg == nil {
		bg = imagepkg.Blank(imagepkg.BlankWidth, imagepkg.BlankHeight)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		store:        store,
		driver:       driver,
		maxDim:       opts.MaxDimension,
		background:   bg,
		maxUpload:    opts.MaxUploadBytes,
		fetchTimeout: opts.FetchTimeout,
		log:          opts.Logger,
	}
}

// status wraps an error with the HTTP status it should produce.
type status struct {
	code int
	err  error
}

func (s status) Error() string { return s.err.Error() }
func (s status) Unwrap() error { return s.err }

func withStatus(code int, err error) error { return status{code: code, err: err} }

func (s *Server) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	var st status
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &st):
		code = st.code
	case errors.As(err, &tooBig):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNotFound), errors.Is(err, template.ErrPlaceholderNotFound):
		code = http.StatusNotFound
	case errors.Is(err, template.ErrInvalidPlaceholder),
		errors.Is(err, records.ErrUnsupportedFormat),
		errors.Is(err, archive.ErrUnsupportedFormat),
		errors.Is(err, util.ErrBadURL),
		errors.Is(err, batch.ErrNotDataURL):
		code = http.StatusBadRequest
	case errors.Is(err, imagepkg.ErrNoBackground), errors.Is(err, archive.ErrNoImages):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		code = 499
	}
	if code >= 500 {
		s.log.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type dataView struct {
	FileName string   `json:"file_name"`
	Count    int      `json:"count"`
	Fields   []string `json:"fields"`
}

type sessionView struct {
	ID           string                  `json:"id"`
	Width        int                     `json:"width"`
	Height       int                     `json:"height"`
	Placeholders []*template.Placeholder `json:"placeholders"`
	Selected     string                  `json:"selected,omitempty"`
	Data         *dataView               `json:"data,omitempty"`
}

func viewOf(sess *session.Session) sessionView {
	w, h := sess.Template.Size()
	v := sessionView{
		ID:           sess.ID,
		Width:        w,
		Height:       h,
		Placeholders: sess.Template.Placeholders(),
	}
	if p := sess.Template.Selected(); p != nil {
		v.Selected = p.ID
	}
	if sess.Records.Name != "" {
		v.Data = &dataView{FileName: sess.Records.Name, Count: sess.Records.Len(), Fields: sess.Records.Header}
	}
	return v
}

func (s *Server) createSession(c *gin.Context) {
	tpl := template.New(s.maxDim)
	if err := tpl.SetBackground(s.background); err != nil {
		s.fail(c, err)
		return
	}
	sess := s.store.Create(tpl)
	s.log.Info("session created", "session", sess.ID)
	c.JSON(http.StatusCreated, viewOf(sess))
}

func (s *Server) getSession(c *gin.Context) {
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		c.JSON(http.StatusOK, viewOf(sess))
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addPlaceholder(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, withStatus(http.StatusBadRequest, err))
		return
	}
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		p, ok := sess.Template.AddPlaceholder(req.Label)
		if !ok {
			c.Status(http.StatusNoContent)
			return nil
		}
		c.JSON(http.StatusCreated, p)
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) updatePlaceholder(c *gin.Context) {
	var patch template.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.fail(c, withStatus(http.StatusBadRequest, err))
		return
	}
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		p, err := sess.Template.UpdatePlaceholder(c.Param("pid"), patch)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, p)
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) selectPlaceholder(c *gin.Context) {
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		if err := sess.Template.Select(c.Param("pid")); err != nil {
			return err
		}
		c.JSON(http.StatusOK, viewOf(sess))
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) deleteSelection(c *gin.Context) {
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		sess.Template.DeletePlaceholder()
		c.Status(http.StatusNoContent)
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

// setBackground accepts a multipart "file", or JSON {"url": ...} holding
// an http(s) URL or an image data URL.
func (s *Server) setBackground(c *gin.Context) {
	img, err := s.readBackground(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	err = s.store.With(c.Param("id"), func(sess *session.Session) error {
		if err := sess.Template.SetBackground(img); err != nil {
			return withStatus(http.StatusUnprocessableEntity, err)
		}
		c.JSON(http.StatusOK, viewOf(sess))
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) readBackground(c *gin.Context) (image.Image, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, badUpload(err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := imagepkg.DecodeImage(f)
		if err != nil {
			return nil, withStatus(http.StatusUnprocessableEntity, err)
		}
		return img, nil
	}

	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, withStatus(http.StatusBadRequest, err)
	}
	if strings.HasPrefix(req.URL, "data:") {
		b, err := batch.StripDataURL(req.URL)
		if err != nil {
			return nil, err
		}
		img, err := imagepkg.DecodeImage(bytes.NewReader(b))
		if err != nil {
			return nil, withStatus(http.StatusUnprocessableEntity, err)
		}
		return img, nil
	}
	img, err := imagepkg.DownloadImage(c.Request.Context(), req.URL, s.fetchTimeout)
	if err != nil {
		if errors.Is(err, util.ErrBadURL) {
			return nil, err
		}
		return nil, withStatus(http.StatusBadGateway, fmt.Errorf("fetch background: %w", err))
	}
	return img, nil
}

func badUpload(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return withStatus(http.StatusBadRequest, err)
}

func (s *Server) uploadData(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, badUpload(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	rs, err := records.Parse(f, fh.Filename)
	if err != nil {
		s.fail(c, withStatus(http.StatusUnprocessableEntity, err))
		return
	}
	err = s.store.With(c.Param("id"), func(sess *session.Session) error {
		sess.Records = rs
		s.log.Info("data uploaded", "session", sess.ID, "file", rs.Name, "records", rs.Len())
		c.JSON(http.StatusOK, dataView{FileName: rs.Name, Count: rs.Len(), Fields: rs.Header})
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func attachment(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) downloadSample(c *gin.Context) {
	format, err := records.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	err = s.store.With(c.Param("id"), func(sess *session.Session) error {
		var buf bytes.Buffer
		if err := batch.Sample(&buf, sess.Template, format); err != nil {
			return err
		}
		attachment(c, records.SampleFileName(format), records.ContentType(format), buf.Bytes())
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) export(c *gin.Context) {
	format, err := archive.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	err = s.store.With(c.Param("id"), func(sess *session.Session) error {
		imgs, err := s.driver.Run(c.Request.Context(), sess.Template, sess.Records)
		if err != nil {
			return err
		}
		data := make([][]byte, len(imgs))
		for i, img := range imgs {
			data[i] = img.Data
		}
		w, h := sess.Template.Size()
		var buf bytes.Buffer
		if err := archive.Write(&buf, format, data, w, h); err != nil {
			return err
		}
		s.log.Info("export finished", "session", sess.ID, "format", format, "images", len(imgs), "bytes", buf.Len())
		attachment(c, archive.FileName(format), archive.ContentType(format), buf.Bytes())
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) preview(c *gin.Context) {
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		b, err := s.driver.Preview(sess.Template)
		if err != nil {
			return err
		}
		c.Data(http.StatusOK, "image/png", b)
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) getTemplate(c *gin.Context) {
	err := s.store.With(c.Param("id"), func(sess *session.Session) error {
		b, err := sess.Template.Spec().Marshal()
		if err != nil {
			return err
		}
		c.Data(http.StatusOK, "application/yaml", b)
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) putTemplate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, badUpload(err))
		return
	}
	spec, err := template.ParseSpec(body)
	if err != nil {
		s.fail(c, withStatus(http.StatusBadRequest, err))
		return
	}
	err = s.store.With(c.Param("id"), func(sess *session.Session) error {
		if err := sess.Template.ApplySpec(spec); err != nil {
			return err
		}
		c.JSON(http.StatusOK, viewOf(sess))
		return nil
	})
	if err != nil {
		s.fail(c, err)
	}
}
