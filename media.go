package matrixctl

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// MXC is a parsed mxc:// media handle.
type MXC struct {
	ServerName string
	MediaID    string
}

// ParseMXC parses "mxc://<server>/<media_id>".
func ParseMXC(uri string) (MXC, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || u.Scheme != "mxc" || u.Host == "" {
		return MXC{}, Errorf(EINVALID, "%q is not an MXC URI (mxc://<server>/<media_id>)", uri)
	}
	id := strings.Trim(u.Path, "/")
	if id == "" || strings.Contains(id, "/") {
		return MXC{}, Errorf(EINVALID, "%q is not an MXC URI (mxc://<server>/<media_id>)", uri)
	}
	return MXC{ServerName: u.Host, MediaID: id}, nil
}

func (m MXC) String() string {
	return "mxc://" + m.ServerName + "/" + m.MediaID
}

// DownloadProgress reports a streamed download. Total is -1 when the
// server sent no Content-Length.
type DownloadProgress struct {
	Written int64
	Total   int64
}

// DownloadProgressFunc is called as chunks are written.
type DownloadProgressFunc func(DownloadProgress)

// DeleteMediaOptions selects local media for deletion.
type DeleteMediaOptions struct {
	Before       time.Time
	SizeGreater  int64
	KeepProfiles bool
}

// MediaService transfers and cleans up media.
type MediaService interface {
	// Download streams the media to dest and returns the final path, which
	// carries an extension inferred from the content type when dest has
	// none. Returns EEXIST without writing when the final path exists.
	Download(ctx context.Context, mxc MXC, dest string, progress DownloadProgressFunc) (string, error)

	// Upload uploads a local file and returns its MXC URI.
	Upload(ctx context.Context, path string) (string, error)

	// DeleteLocalMedia deletes local media and returns the deleted ids.
	DeleteLocalMedia(ctx context.Context, opts DeleteMediaOptions) ([]string, error)

	// PurgeRemoteMedia purges cached remote media older than before and
	// returns the number of purged files.
	PurgeRemoteMedia(ctx context.Context, before time.Time) (int, error)
}

// Download is a response body streamed to a temporary file.
type Download struct {
	// TempPath is the temporary file holding the body.
	TempPath    string
	ContentType string
	// Extension is inferred from ContentType, with a leading dot. Empty
	// when the type is unknown.
	Extension string
	Size      int64
}

// Downloader streams a response body to a temporary file.
type Downloader interface {
	Download(ctx context.Context, req Request, progress DownloadProgressFunc) (*Download, error)
}

// MediaStore moves finished downloads to their destination.
type MediaStore interface {
	// Commit copies the download to dest, appending the inferred extension
	// when dest has none, and removes the temporary file. Returns EEXIST
	// without writing when the final path already exists.
	Commit(dl *Download, dest string) (string, error)

	// Abort removes the temporary file.
	Abort(dl *Download) error
}
