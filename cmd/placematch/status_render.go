package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"placematch/internal/place"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 12

// renderCountLine prints one summary line, colored by outcome on terminals.
func renderCountLine(label string, count int, status place.Status, colorize bool) string {
	base := fmt.Sprintf("  %-*s %d", statusLabelWidth, label+":", count)
	if colorize && count > 0 {
		if color := statusColor(status); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusColor(status place.Status) string {
	switch status {
	case place.StatusMatched:
		return ansiGreen
	case place.StatusReview:
		return ansiYellow
	case place.StatusError:
		return ansiRed
	case place.StatusUnmatched:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
