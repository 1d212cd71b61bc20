// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/webeid/cmd/webeid/cli"
	"github.com/bureau-foundation/webeid/lib/eiderr"
	"github.com/bureau-foundation/webeid/lib/webeid"
)

type styles struct {
	label     lipgloss.Style
	success   lipgloss.Style
	errorCode lipgloss.Style
	muted     lipgloss.Style
}

// stylesFor binds styles to w so color is only emitted when w is a
// terminal.
func stylesFor(w io.Writer) styles {
	return newStyles(lipgloss.NewRenderer(w))
}

func newStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		label:     renderer.NewStyle().Bold(true),
		success:   renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		errorCode: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		muted:     renderer.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func renderStatus(w io.Writer, result webeid.StatusResult) error {
	s := stylesFor(w)
	var builder strings.Builder
	builder.WriteString(s.success.Render("compatible") + "\n")
	for _, row := range [][2]string{
		{"library", result.Library},
		{"extension", result.Extension},
		{"native app", result.NativeApp},
	} {
		builder.WriteString(s.label.Render(pad(row[0], 12)) + row[1] + "\n")
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

func renderResponse(w io.Writer, heading string, response any) error {
	s := stylesFor(w)
	if _, err := fmt.Fprintln(w, s.success.Render(heading)); err != nil {
		return err
	}
	return cli.WriteJSON(w, response)
}

// renderError writes the code, message and extra attributes of a Web
// eID error. Attributes are sorted by name.
func renderError(w io.Writer, eidErr *eiderr.Error) error {
	return writeError(w, stylesFor(w), eidErr)
}

func writeError(w io.Writer, s styles, eidErr *eiderr.Error) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s %s\n",
		s.errorCode.Render(string(eidErr.Code)),
		eidErr.Message)
	builder.WriteString(s.muted.Render(eidErr.Name()) + "\n")

	keys := make([]string, 0, len(eidErr.Extra))
	for key := range eidErr.Extra {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	width := 0
	for _, key := range keys {
		width = max(width, len(key)+2)
	}
	for _, key := range keys {
		fmt.Fprintf(&builder, "  %s%s\n", s.label.Render(pad(key, width)), formatValue(eidErr.Extra[key]))
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

// pad right-pads s with spaces to width. Styles are applied after
// padding so escape sequences do not count toward the width.
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatValue renders an extra attribute on one line. Objects become
// sorted key=value pairs.
func formatValue(value any) string {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, key+"="+formatValue(v[key]))
		}
		return strings.Join(pairs, " ")
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, formatValue(item))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// report handles an operation error. Web eID errors are rendered (as
// {"error": ...} in JSON mode) and turned into exit status 1; anything
// else is returned for main to print.
func report(output Output, jsonOutput bool, err error) error {
	var eidErr *eiderr.Error
	if !errors.As(err, &eidErr) {
		return err
	}
	if jsonOutput {
		if writeErr := cli.WriteJSON(output.Stdout, map[string]any{"error": eidErr.Wire()}); writeErr != nil {
			return writeErr
		}
	} else if renderErr := renderError(output.Stderr, eidErr); renderErr != nil {
		return renderErr
	}
	return &cli.ExitError{Code: 1}
}
