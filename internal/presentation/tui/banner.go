package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"      _        _        __ _               ", "#818cf8"},
	{"  ___| |_ __ _| |_ ___ / _| | _____      __", "#a78bfa"},
	{" / __| __/ _` | __/ _ \\ |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
	{" \\__ \\ || (_| | ||  __/  _| | (_) \\ V  V / ", "#e879f9"},
	{" |___/\\__\\__,_|\\__\\___|_| |_|\\___/ \\_/\\_/  ", "#f472b6"},
}

// PrintBanner writes the stateflow ASCII banner to w, colored when the terminal allows it.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
