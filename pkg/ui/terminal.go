package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"walldo/pkg/stats"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║ ██╗    ██╗ █████╗ ██╗     ██╗     ██████╗  ██████╗        ║
    ║ ██║    ██║██╔══██╗██║     ██║     ██╔══██╗██╔═══██╗       ║
    ║ ██║ █╗ ██║███████║██║     ██║     ██║  ██║██║   ██║       ║
    ║ ██║███╗██║██╔══██║██║     ██║     ██║  ██║██║   ██║       ║
    ║ ╚███╔███╔╝██║  ██║███████╗███████╗██████╔╝╚██████╔╝       ║
    ║  ╚══╝╚══╝ ╚═╝  ╚═╝╚══════╝╚══════╝╚═════╝  ╚═════╝        ║
    ║             WALLPAPER DOWNLOADER                          ║
    ╚═══════════════════════════════════════════════════════════╝
`

// Color functions for terminal output. They return the text unchanged
// when stdout is not a terminal.
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var colorEnabled = IsTerminal(os.Stdout)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// PrintSummary writes the statistics of the last run followed by the
// totals of the session
func PrintSummary(w io.Writer, run, session stats.Snapshot) {
	fmt.Fprintf(w, "\n%s\n", Magenta("Run"))
	printSnapshot(w, run)
	fmt.Fprintf(w, "%s\n", Magenta("Session"))
	printSnapshot(w, session)
}

func printSnapshot(w io.Writer, s stats.Snapshot) {
	fmt.Fprintf(w, "  %s %-8s %d\n", Dim("•"), "pages", s.PagesVisited)
	fmt.Fprintf(w, "  %s %-8s %d\n", Dim("•"), "images", s.ImagesDownloaded)
	fmt.Fprintf(w, "  %s %-8s %.2f MiB\n", Dim("•"), "size", s.MegaBytes())
	fmt.Fprintf(w, "  %s %-8s %s\n", Dim("•"), "elapsed", s.Elapsed.Round(time.Millisecond))
}
