package synapse

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/matrixctl"
	"github.com/gabriel-vasile/mimetype"
)

// Media endpoints outside the admin API.
const (
	MediaDownloadV1 = "/_matrix/client/v1/media/download"
	MediaUploadV3   = "/_matrix/media/v3/upload"
)

// Ensure MediaService implements matrixctl.MediaService at compile time.
var _ matrixctl.MediaService = (*MediaService)(nil)

// MediaService implements matrixctl.MediaService.
type MediaService struct {
	client     *Client
	downloader matrixctl.Downloader
	store      matrixctl.MediaStore
}

// NewMediaService creates a new MediaService.
func NewMediaService(client *Client, downloader matrixctl.Downloader, store matrixctl.MediaStore) *MediaService {
	return &MediaService{client: client, downloader: downloader, store: store}
}

// Download fetches an MXC handle through the authenticated media API.
func (s *MediaService) Download(ctx context.Context, mxc matrixctl.MXC, dest string, progress matrixctl.DownloadProgressFunc) (string, error) {
	req, err := s.client.Request(ctx, MediaDownloadV1+"/"+mxc.ServerName+"/"+mxc.MediaID)
	if err != nil {
		return "", err
	}
	req = req.WithParam("allow_redirect", true).WithTimeout(5 * time.Minute)

	dl, err := s.downloader.Download(ctx, req, progress)
	if err != nil {
		return "", err
	}
	path, err := s.store.Commit(dl, dest)
	if err != nil {
		if abortErr := s.store.Abort(dl); abortErr != nil {
			s.client.Logger.Warn().Err(abortErr).Str("path", dl.TempPath).Msg("cannot remove partial download")
		}
		return "", err
	}
	return path, nil
}

// Upload streams a local file to the media repository.
func (s *MediaService) Upload(ctx context.Context, path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", matrixctl.Errorf(matrixctl.ENOTFOUND, "file %s does not exist", path)
		}
		return "", matrixctl.Errorf(matrixctl.EINVALID, "cannot read %s: %v", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", matrixctl.Errorf(matrixctl.EINVALID, "cannot open %s: %v", path, err)
	}
	defer f.Close()

	req, err := s.client.Request(ctx, MediaUploadV3)
	if err != nil {
		return "", err
	}
	req = req.WithMethod(http.MethodPost).
		WithParam("filename", filepath.Base(path)).
		WithTimeout(5*time.Minute).
		WithStream(f, mtype.String())

	var resp struct {
		ContentURI string `json:"content_uri"`
	}
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.ContentURI, nil
}

// DeleteLocalMedia deletes local media older than opts.Before.
func (s *MediaService) DeleteLocalMedia(ctx context.Context, opts matrixctl.DeleteMediaOptions) ([]string, error) {
	req, err := s.client.Request(ctx, AdminV1+"/media/delete")
	if err != nil {
		return nil, err
	}
	req = req.WithMethod(http.MethodPost).
		WithParam("before_ts", opts.Before.UnixMilli()).
		WithParam("keep_profiles", opts.KeepProfiles).
		WithTimeout(5 * time.Minute)
	if opts.SizeGreater > 0 {
		req = req.WithParam("size_gt", opts.SizeGreater)
	}

	var resp struct {
		DeletedMedia []string `json:"deleted_media"`
		Total        int      `json:"total"`
	}
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.DeletedMedia == nil {
		resp.DeletedMedia = []string{}
	}
	return resp.DeletedMedia, nil
}

// PurgeRemoteMedia purges the remote media cache.
func (s *MediaService) PurgeRemoteMedia(ctx context.Context, before time.Time) (int, error) {
	req, err := s.client.Request(ctx, AdminV1+"/purge_media_cache")
	if err != nil {
		return 0, err
	}
	req = req.WithMethod(http.MethodPost).
		WithParam("before_ts", before.UnixMilli()).
		WithTimeout(5 * time.Minute)

	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}
