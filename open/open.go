// Package open hands web pages to the system's default browser.
package open

import (
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
)

// Start opens the http(s) page at link without waiting for the browser.
func Start(link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fault.Newf(fault.ValidationError, "open", "%q is not a web page", link)
	}

	cmd, ok := command(runtime.GOOS, u.String())
	if !ok {
		return fault.Newf(fault.Unknown, "open", "unsupported OS: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func command(goos, link string) (*exec.Cmd, bool) {
	switch goos {
	case constant.Windows:
		rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
		return exec.Command(rundll, "url.dll,FileProtocolHandler", link), true
	case constant.Darwin:
		return exec.Command("open", link), true
	case constant.Linux:
		return exec.Command("xdg-open", link), true
	case constant.Android:
		return exec.Command("termux-open", link), true
	default:
		return nil, false
	}
}
