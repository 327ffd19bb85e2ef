package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/matrixctl"
	mhttp "github.com/fwojciec/matrixctl/http"
)

// Run executes the download command.
func (c *DownloadCmd) Run(deps *Dependencies) error {
	mxc, err := matrixctl.ParseMXC(c.MXC)
	if err != nil {
		return fail(deps, err)
	}
	dest := c.Dest
	if dest == "" {
		dest = mxc.MediaID
	}

	last := ""
	path, err := deps.Media.Download(deps.Ctx, mxc, dest, func(p matrixctl.DownloadProgress) {
		line := mhttp.FormatProgress(p)
		if line != last {
			fmt.Fprintf(deps.Stderr, "\r%s", line)
			last = line
		}
	})
	if last != "" {
		fmt.Fprintln(deps.Stderr)
	}
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Saved %s to %s\n", mxc, path)

	if deps.Images != nil && deps.Images.Enabled() && isImage(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			deps.Logger.Warn().Err(err).Str("path", path).Msg("cannot preview image")
			return nil
		}
		if err := deps.Images.Show(filepath.Base(path), data); err != nil {
			deps.Logger.Warn().Err(err).Msg("cannot preview image")
		}
	}
	return nil
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}

// Run executes the upload command.
func (c *UploadCmd) Run(deps *Dependencies) error {
	uri, err := deps.Media.Upload(deps.Ctx, c.Path)
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintln(deps.Stdout, uri)
	return nil
}

// Run executes the delete-local-media command.
func (c *DeleteLocalMediaCmd) Run(deps *Dependencies) error {
	if c.Days < 0 || c.SizeGreater < 0 {
		return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "--days and --size-gt must not be negative"))
	}
	ok, err := confirm(deps, c.Yes, fmt.Sprintf("Delete local media not accessed for %d days?", c.Days))
	if err != nil || !ok {
		return err
	}

	deleted, err := deps.Media.DeleteLocalMedia(deps.Ctx, matrixctl.DeleteMediaOptions{
		Before:       time.Now().AddDate(0, 0, -c.Days),
		SizeGreater:  c.SizeGreater,
		KeepProfiles: c.KeepProfiles,
	})
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, deleted)
	}
	fmt.Fprintf(deps.Stdout, "Deleted %d local media files\n", len(deleted))
	return nil
}

// Run executes the purge-remote-media command.
func (c *PurgeRemoteMediaCmd) Run(deps *Dependencies) error {
	if c.Days < 0 {
		return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "--days must not be negative"))
	}
	ok, err := confirm(deps, c.Yes, fmt.Sprintf("Purge remote media cached more than %d days ago?", c.Days))
	if err != nil || !ok {
		return err
	}

	purged, err := deps.Media.PurgeRemoteMedia(deps.Ctx, time.Now().AddDate(0, 0, -c.Days))
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Purged %d remote media files\n", purged)
	return nil
}

// confirm asks question unless yes is set. A declined question prints
// "Aborted".
func confirm(deps *Dependencies, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	ok, err := deps.Prompter.Confirm(question)
	if err != nil {
		return false, fail(deps, err)
	}
	if !ok {
		fmt.Fprintln(deps.Stdout, "Aborted")
	}
	return ok, nil
}
