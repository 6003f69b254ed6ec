package console

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"deskstream/internal/types"
)

// PickResolution asks which resolution to stream at until it gets a valid
// answer. An empty answer, or end of input, keeps def.
func PickResolution(in *bufio.Reader, w io.Writer, display image.Point, def types.Resolution) (types.Resolution, error) {
	PrintStep(w, 1, "Select resolution")
	for i, r := range types.Resolutions {
		label := r.String()
		if display.X > 0 && display.Y > 0 {
			label = r.Describe(display)
		}
		marker := " "
		if r == def {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %s%d.%s %s\n", marker, ColorBold, i+1, ColorReset, label)
	}

	for {
		fmt.Fprintf(w, "  %sChoice [%s]:%s ", ColorBold, def.Name(), ColorReset)
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return def, err
		}
		answer := strings.TrimSpace(line)

		if answer == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(w)
			}
			PrintHint(w, "-> "+def.String())
			return def, nil
		}
		if n, convErr := strconv.Atoi(answer); convErr == nil {
			if n >= 1 && n <= len(types.Resolutions) {
				r := types.Resolutions[n-1]
				PrintHint(w, "-> "+r.String())
				return r, nil
			}
		} else if r, parseErr := types.ParseResolution(answer); parseErr == nil {
			PrintHint(w, "-> "+r.String())
			return r, nil
		}

		PrintHint(w, ColorYellow+"Invalid choice. Enter a number from the list."+ColorReset)
		if errors.Is(err, io.EOF) {
			return def, nil
		}
	}
}
