package mock

import (
	"context"
	"time"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.MediaService = (*MediaService)(nil)

// MediaService is a mock implementation of matrixctl.MediaService.
type MediaService struct {
	DownloadFn         func(ctx context.Context, mxc matrixctl.MXC, dest string, progress matrixctl.DownloadProgressFunc) (string, error)
	UploadFn           func(ctx context.Context, path string) (string, error)
	DeleteLocalMediaFn func(ctx context.Context, opts matrixctl.DeleteMediaOptions) ([]string, error)
	PurgeRemoteMediaFn func(ctx context.Context, before time.Time) (int, error)
}

func (s *MediaService) Download(ctx context.Context, mxc matrixctl.MXC, dest string, progress matrixctl.DownloadProgressFunc) (string, error) {
	return s.DownloadFn(ctx, mxc, dest, progress)
}

func (s *MediaService) Upload(ctx context.Context, path string) (string, error) {
	return s.UploadFn(ctx, path)
}

func (s *MediaService) DeleteLocalMedia(ctx context.Context, opts matrixctl.DeleteMediaOptions) ([]string, error) {
	return s.DeleteLocalMediaFn(ctx, opts)
}

func (s *MediaService) PurgeRemoteMedia(ctx context.Context, before time.Time) (int, error) {
	return s.PurgeRemoteMediaFn(ctx, before)
}

var _ matrixctl.Downloader = (*Downloader)(nil)

// Downloader is a mock implementation of matrixctl.Downloader.
type Downloader struct {
	DownloadFn func(ctx context.Context, req matrixctl.Request, progress matrixctl.DownloadProgressFunc) (*matrixctl.Download, error)
}

func (d *Downloader) Download(ctx context.Context, req matrixctl.Request, progress matrixctl.DownloadProgressFunc) (*matrixctl.Download, error) {
	return d.DownloadFn(ctx, req, progress)
}

var _ matrixctl.MediaStore = (*MediaStore)(nil)

// MediaStore is a mock implementation of matrixctl.MediaStore.
type MediaStore struct {
	CommitFn func(dl *matrixctl.Download, dest string) (string, error)
	AbortFn  func(dl *matrixctl.Download) error
}

func (s *MediaStore) Commit(dl *matrixctl.Download, dest string) (string, error) {
	return s.CommitFn(dl, dest)
}

func (s *MediaStore) Abort(dl *matrixctl.Download) error {
	return s.AbortFn(dl)
}
