package cli

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/exp/charmtone"
)

// ColorScheme is fang's default scheme with errors and flags in the colors
// used by the text report.
func ColorScheme(c lipgloss.LightDarkFunc) fang.ColorScheme {
	cs := fang.DefaultColorScheme(c)
	cs.Title = charmtone.Cherry
	cs.Flag = c(charmtone.Pepper, charmtone.Guac)
	cs.Command = c(charmtone.Pepper, charmtone.Cherry)
	cs.ErrorHeader = [2]color.Color{charmtone.Butter, charmtone.Cherry}

	return cs
}
