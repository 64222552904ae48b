//go:build windows

package screen

import (
	"context"
	"fmt"
	"strings"
)

type windowsBackend struct{}

// captureScript grabs the virtual screen through System.Drawing.
const captureScript = `Add-Type -AssemblyName System.Windows.Forms,System.Drawing;` +
	`$b=[System.Windows.Forms.SystemInformation]::VirtualScreen;` +
	`$bmp=New-Object System.Drawing.Bitmap $b.Width,$b.Height;` +
	`$g=[System.Drawing.Graphics]::FromImage($bmp);` +
	`$g.CopyFromScreen($b.Left,$b.Top,0,0,$bmp.Size);` +
	`$bmp.Save('%s',[System.Drawing.Imaging.ImageFormat]::Png)`

func (windowsBackend) captureRaw(ctx context.Context, file string) error {
	script := fmt.Sprintf(captureScript, strings.ReplaceAll(file, "'", "''"))
	return runTool(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// New creates a platform-specific screen capturer
func New() Capturer {
	return newBase(windowsBackend{})
}
