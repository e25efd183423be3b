package transfer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"volview/pkg/volerr"
)

// Knots is the content of a .tfl file.
type Knots struct {
	Colors []ColorKnot
	Alphas []AlphaKnot
}

// Read parses a .tfl stream. Each line holds one knot as whitespace
// separated numbers: "position alpha" or "position r g b". Lines with any
// other field count are skipped. A field that is not a number fails with
// volerr.ErrMalformedLine.
//
// Knots are returned in file order, unsorted.
func Read(r io.Reader) (Knots, error) {
	const op = "transfer.Read"

	var knots Knots
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 && len(fields) != 4 {
			continue
		}

		values := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Knots{}, volerr.Wrap(volerr.CodeMalformedLine, op, "", err, "line %d: invalid number %q", lineNo, f)
			}
			values[i] = v
		}

		if len(values) == 2 {
			knots.Alphas = append(knots.Alphas, AlphaKnot{Position: values[0], Alpha: values[1]})
		} else {
			knots.Colors = append(knots.Colors, ColorKnot{Position: values[0], R: values[1], G: values[2], B: values[3]})
		}
	}
	if err := scanner.Err(); err != nil {
		return Knots{}, fmt.Errorf("%s: %w", op, err)
	}

	return knots, nil
}

// ReadFile reads a .tfl file.
func ReadFile(path string) (Knots, error) {
	f, err := os.Open(path)
	if err != nil {
		return Knots{}, volerr.Wrap(volerr.CodeFileNotFound, "transfer.ReadFile", path, err, "transfer function file not found")
	}
	defer f.Close()

	knots, err := Read(f)
	if err != nil {
		if e, ok := err.(*volerr.Error); ok {
			e.Path = path
		}
		return Knots{}, err
	}
	return knots, nil
}

// Write serializes knots: every alpha knot, then every color knot, one per
// line. Numbers use the shortest form that parses back to the same value.
func Write(w io.Writer, knots Knots) error {
	bw := bufio.NewWriter(w)

	for _, k := range knots.Alphas {
		fmt.Fprintf(bw, "%s %s\n", formatFloat(k.Position), formatFloat(k.Alpha))
	}
	for _, k := range knots.Colors {
		fmt.Fprintf(bw, "%s %s %s %s\n",
			formatFloat(k.Position), formatFloat(k.R), formatFloat(k.G), formatFloat(k.B))
	}

	return bw.Flush()
}

// WriteFile writes knots to path, replacing any existing file.
func WriteFile(path string, knots Knots) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transfer function file: %w", err)
	}

	if err := Write(f, knots); err != nil {
		f.Close()
		return fmt.Errorf("failed to write transfer function file: %w", err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
