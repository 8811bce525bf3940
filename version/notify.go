package version

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/style"
	"github.com/spf13/viper"
)

const notifyTimeout = 3 * time.Second

// Notify prints a notice to stderr when a newer release exists.
// Failures are logged and otherwise ignored.
func Notify(ctx context.Context) {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	latest, err := Latest(ctx)
	if err != nil {
		log.Debugf("version: %v", err)
		return
	}

	if newer, err := Newer(latest, constant.Version); err != nil || !newer {
		return
	}

	_, _ = fmt.Fprintf(os.Stderr, `
%s New version is available %s %s
%s

`,
		style.Fg(style.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/"+Repository+"/releases/tag/v"+latest),
	)
}
