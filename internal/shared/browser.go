package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the default system browser to the specified URL, used
// for the Google sign-in consent page. The BROWSER environment variable
// overrides the platform default.
func OpenBrowser(url string) error {
	if browser := os.Getenv("BROWSER"); browser != "" {
		return startCmd(exec.Command(browser, url))
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return startCmd(exec.Command("open", url))
	case "linux":
		return startCmd(exec.Command("xdg-open", url))
	case "windows":
		return startCmd(exec.Command("cmd", "/c", "start", url))
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}
}

func startCmd(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
