package http

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fwojciec/matrixctl"
)

// preferredExtensions pins the extension of common media types, since the
// platform MIME table may list several (".jpe", ".jfif", ...).
var preferredExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"text/html":       ".html",
}

// ExtensionFor returns the file extension for a Content-Type header, with
// a leading dot, or "" when the type is unknown.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" {
		return ""
	}
	if ext, ok := preferredExtensions[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	sort.Strings(exts)
	return exts[0]
}

// Ensure Downloader implements matrixctl.Downloader at compile time.
var _ matrixctl.Downloader = (*Downloader)(nil)

// Downloader streams response bodies into temporary files. The files are
// created with mode 0600 and are left in place for a MediaStore to commit.
type Downloader struct {
	client *Client
	dir    string
}

// NewDownloader creates a Downloader writing temporary files to dir, or to
// the system temporary directory when dir is empty.
func NewDownloader(client *Client, dir string) *Downloader {
	return &Downloader{client: client, dir: dir}
}

// Download sends req and streams a successful body to a temporary file,
// calling progress after every chunk. Error responses are classified like
// Client.Do.
func (d *Downloader) Download(ctx context.Context, req matrixctl.Request, progress matrixctl.DownloadProgressFunc) (*matrixctl.Download, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := d.client.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !req.IsSuccess(resp.StatusCode) || resp.StatusCode == http.StatusFound {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, transportError(req, err)
		}
		_, err = classify(req, resp.StatusCode, resp.Header, body)
		return nil, err
	}

	tmp, err := os.CreateTemp(d.dir, "matrixctl-media-*")
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot create temporary file: %v", err)
	}

	contentType := resp.Header.Get("Content-Type")
	dl := &matrixctl.Download{
		TempPath:    tmp.Name(),
		ContentType: contentType,
		Extension:   ExtensionFor(contentType),
	}

	w := &progressWriter{w: tmp, total: resp.ContentLength, progress: progress}
	n, err := io.Copy(w, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, transportError(req, err)
	}
	dl.Size = n
	return dl, nil
}

type progressWriter struct {
	w        io.Writer
	written  int64
	total    int64
	progress matrixctl.DownloadProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.progress != nil {
		p.progress(matrixctl.DownloadProgress{Written: p.written, Total: p.total})
	}
	return n, err
}

// FormatProgress renders download progress for humans, e.g.
// "1.2 MB / 3.4 MB (35%)" or "512 kB" when the total is unknown.
func FormatProgress(p matrixctl.DownloadProgress) string {
	if p.Total <= 0 {
		return humanize.Bytes(uint64(p.Written))
	}
	pct := p.Written * 100 / p.Total
	return fmt.Sprintf("%s / %s (%d%%)", humanize.Bytes(uint64(p.Written)), humanize.Bytes(uint64(p.Total)), pct)
}
