// Package media uploads product photos to the hosted image service.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadSizeBytes = 5 << 20
	maxEdgePixels      = 1024
)

var (
	ErrNotConfigured = errors.New("Falta configurar la subida de imágenes (url o preset)")
	ErrPresetMissing = errors.New("upload_preset no encontrado. Verifica UPLOAD_PRESET.")
	ErrNoURL         = errors.New("el servicio de imágenes no devolvió una URL válida")
	ErrTooLarge      = errors.New("la imagen supera el límite de 5MB")
)

const msgUploadFailed = "No se pudo subir la imagen"

// UploadError is a failed upload reported by the image host, or a request
// that never reached it.
type UploadError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string { return e.Message }

func (e *UploadError) Unwrap() error { return e.Err }

type Uploader struct {
	url    string
	preset string
	http   *http.Client
	logger *logrus.Logger
}

func NewUploader(url string, preset string, logger *logrus.Logger) *Uploader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Uploader{
		url:    strings.TrimSpace(url),
		preset: strings.TrimSpace(preset),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (u *Uploader) WithHTTPClient(hc *http.Client) *Uploader {
	u.http = hc
	return u
}

// Upload sends filename's bytes as the multipart field "file" together with
// the configured preset and returns the hosted secure_url.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if u.url == "" || u.preset == "" {
		return "", ErrNotConfigured
	}
	if len(data) > maxUploadSizeBytes {
		return "", ErrTooLarge
	}
	data, filename = downscale(data, filename, u.logger)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.WriteField("upload_preset", u.preset); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		u.logger.WithError(err).Warn("image upload request failed")
		return "", &UploadError{Message: msgUploadFailed, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var parsed struct {
		SecureURL string `json:"secure_url"`
		Message   string `json:"message"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error.Message
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = msgUploadFailed
		}
		if strings.Contains(strings.ToLower(msg), "preset") {
			return "", ErrPresetMissing
		}
		return "", &UploadError{StatusCode: resp.StatusCode, Message: msg}
	}
	if parsed.SecureURL == "" {
		return "", ErrNoURL
	}
	return parsed.SecureURL, nil
}

// downscale shrinks photos wider or taller than maxEdgePixels. Anything that
// does not decode as an image is sent untouched.
func downscale(data []byte, filename string, logger *logrus.Logger) ([]byte, string) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= maxEdgePixels && cfg.Height <= maxEdgePixels) {
		return data, filename
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, filename
	}
	var resized image.Image
	if cfg.Width >= cfg.Height {
		resized = imaging.Resize(img, maxEdgePixels, 0, imaging.Lanczos)
	} else {
		resized = imaging.Resize(img, 0, maxEdgePixels, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		logger.WithError(err).Warn("image downscale failed, uploading original")
		return data, filename
	}
	name := strings.TrimSuffix(filename, path.Ext(filename)) + ".jpg"
	return buf.Bytes(), name
}
