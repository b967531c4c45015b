// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/railkit/cvscope/pkg/dcc"
	"github.com/spf13/cobra"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Inspect configuration variable indices",
}

var cvInfoCmd = &cobra.Command{
	Use:   "info <variable>...",
	Short: "Show how a variable is addressed",
	Long: `Show the extended index, base CV, page selection and name of variables.

No connection is needed; this only decodes the variable arguments.

` + variableSyntax,
	Args: cobra.MinimumNArgs(1),
	RunE: runCVInfo,
}

var cvSpacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List the well known variable spaces",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(formatVariableSpaces())
	},
}

func init() {
	rootCmd.AddCommand(cvCmd)
	cvCmd.AddCommand(cvInfoCmd)
	cvCmd.AddCommand(cvSpacesCmd)
}

func runCVInfo(cmd *cobra.Command, args []string) error {
	variables, err := ParseVariables(args)
	if err != nil {
		return err
	}

	for i, v := range variables {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(describeVariable(v))
	}
	return nil
}

// describeVariable renders everything known about the addressing of v
func describeVariable(v dcc.ExtendedVariableIndex) string {
	var b strings.Builder

	name := dcc.FullVariableName(v)
	if name == "" {
		name = "(unnamed)"
	}

	fmt.Fprintf(&b, "%s  %s\n", v, name)
	fmt.Fprintf(&b, "  Index:    0x%06X\n", uint32(v))
	fmt.Fprintf(&b, "  Base CV:  %d\n", v.VariableIndex())
	fmt.Fprintf(&b, "  Type:     %s\n", v.Type())

	switch {
	case v.HasExtendedPage():
		page := v.ExtendedPage()
		fmt.Fprintf(&b, "  Page:     %d (CV31=%d, CV32=%d)\n", page, v.CV31(), v.CV32())
	case v.HasSusiPage():
		fmt.Fprintf(&b, "  Bank:     %d (CV%d=%d, %s)\n", v.SusiPage(), dcc.CVSusiBankIndex, v.SusiPage(), v.SusiNode())
	default:
		b.WriteString("  Page:     none\n")
	}

	var spaces []string
	for _, space := range dcc.VariableSpaces {
		r := space.Range()
		if r.Contains(v) || space.ContainsIndex(v.VariableIndex()) {
			spaces = append(spaces, space.String())
		}
	}
	if len(spaces) > 0 {
		fmt.Fprintf(&b, "  Spaces:   %s\n", strings.Join(spaces, ", "))
	}

	return b.String()
}

// formatVariableSpaces renders a table of every variable space
func formatVariableSpaces() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %-12s %s\n", "SPACE", "FIRST", "LAST")
	for _, space := range dcc.VariableSpaces {
		r := space.Range()
		fmt.Fprintf(&b, "%-22s %-12s %s\n", space, variableArgument(r.First), variableArgument(r.Last))
	}
	return b.String()
}

// variableArgument renders v in the syntax accepted by ParseVariable
func variableArgument(v dcc.ExtendedVariableIndex) string {
	switch {
	case v.HasExtendedPage():
		return fmt.Sprintf("%d:%d", v.VariableIndex(), v.ExtendedPage())
	case v.HasSusiPage():
		return fmt.Sprintf("%d@%d", v.VariableIndex(), v.SusiPage())
	}
	return fmt.Sprintf("%d", v.VariableIndex())
}
