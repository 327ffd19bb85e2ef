package oidc

import (
	"os"

	"github.com/pkg/browser"
)

func init() {
	// Launcher chatter must not mix with command output.
	browser.Stdout = os.Stderr
}

// OpenBrowser opens url in the desktop browser.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}
