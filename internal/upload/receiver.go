// Package upload receives multipart photo submissions onto local disk.
package upload

import (
	"errors"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Form field names.
const (
	FieldImage         = "image"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
	FieldManualAddress = "manualAddress"
)

// memoryLimit is how much of the form is buffered in memory before spilling to disk.
const memoryLimit = 1 << 20

var (
	ErrTooLarge  = errors.New("upload exceeds size limit")
	ErrMalformed = errors.New("malformed multipart form")
)

// Form is a parsed submission. Photo is nil when no file was sent.
// Unparseable coordinates come back as NaN so validation rejects them.
type Form struct {
	Photo         *Photo
	Latitude      float64
	Longitude     float64
	ManualAddress string
}

// Receiver writes uploaded photos into a directory.
type Receiver struct {
	dir      string
	maxBytes int64
}

// NewReceiver creates a receiver, creating dir if needed.
func NewReceiver(dir string, maxBytes int64) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, eris.Wrapf(err, "failed to create upload dir %s", dir)
	}
	return &Receiver{dir: dir, maxBytes: maxBytes}, nil
}

// Receive parses r and stores the image field. On success the caller owns
// Form.Photo and must release it.
func (rc *Receiver) Receive(w http.ResponseWriter, r *http.Request) (*Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rc.maxBytes)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, ErrTooLarge
		}
		return nil, eris.Wrapf(ErrMalformed, "%v", err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	form := &Form{
		Latitude:      parseCoordinate(r.FormValue(FieldLatitude)),
		Longitude:     parseCoordinate(r.FormValue(FieldLongitude)),
		ManualAddress: strings.TrimSpace(r.FormValue(FieldManualAddress)),
	}

	file, header, err := r.FormFile(FieldImage)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil
		}
		return nil, eris.Wrap(err, "failed to read image field")
	}
	defer file.Close() //nolint:errcheck

	photo, err := rc.store(file, header.Filename)
	if err != nil {
		return nil, err
	}
	form.Photo = photo
	return form, nil
}

func (rc *Receiver) store(src io.Reader, originalName string) (*Photo, error) {
	name := filepath.Base(originalName)
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(rc.dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create upload file")
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return nil, eris.Wrap(err, "failed to write upload file")
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return nil, eris.Wrap(err, "failed to close upload file")
	}

	return NewPhoto(path, name), nil
}

func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
