package gtfsman

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-manager/internal"
)

// FeedPathPlaceholder in a post-process command is replaced by the feed directory.
const FeedPathPlaceholder = "{feed_path}"

// RunPostprocess runs cmd through sh with FeedPathPlaceholder substituted.
// Output goes to the process's stdout and stderr; a non-zero exit is an error.
func RunPostprocess(ctx context.Context, cmd, feedPath string) error {
	cmd = strings.ReplaceAll(cmd, FeedPathPlaceholder, feedPath)
	internal.Logger().Info("running postprocess command", "cmd", cmd)
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
