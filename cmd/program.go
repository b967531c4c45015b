// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/railkit/cvscope/pkg/control"
	"github.com/railkit/cvscope/pkg/dcc"
	"github.com/spf13/cobra"
)

var (
	programAddress int
	programVerbose bool
	writeVerify    bool
)

var readCmd = &cobra.Command{
	Use:   "read <variable>...",
	Short: "Read decoder variables on the programming track",
	Long: `Read configuration variables on the programming track.

Extended (CV31/CV32) and SUSI (CV1021) pages are selected before each paged
variable. Failed accesses are retried up to --retries times.

` + variableSyntax,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <variable> <value>",
	Short: "Write a decoder variable on the programming track",
	Long: `Write a configuration variable on the programming track.

The value may be given in decimal, hex (0x..) or binary (0b..).

` + variableSyntax,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

func init() {
	for _, c := range []*cobra.Command{readCmd, writeCmd} {
		rootCmd.AddCommand(c)
		c.Flags().IntVarP(&programAddress, "address", "a", 3, "Vehicle address (logged only on the programming track)")
		c.Flags().BoolVarP(&programVerbose, "verbose", "v", false, "Show page selection progress")
	}
	writeCmd.Flags().BoolVar(&writeVerify, "verify", false, "Read the variable back after writing")
}

// progressObserver prints page selection progress to stderr with --verbose
func progressObserver() func(dcc.ExtendedVariableIndex, control.State) {
	if !programVerbose {
		return nil
	}
	return func(variable dcc.ExtendedVariableIndex, state control.State) {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", variable, state)
	}
}

// retryUntilFinal asks the programmer to retry until a terminal result and
// delivers the last result to ch
func retryUntilFinal(ch chan<- control.VariableResult) control.VariableCallback {
	return func(r control.VariableResult) control.Continuation {
		if r.Failed() && !control.IsTerminal(r.Err) {
			return control.Retry
		}
		ch <- r
		return control.Proceed
	}
}

// formatResult renders the result of accessing variable
func formatResult(variable dcc.ExtendedVariableIndex, r control.VariableResult) string {
	name := dcc.FullVariableName(variable)
	if r.Failed() {
		return fmt.Sprintf("%-12s %-22s ERROR: %v", variable, name, r.Err)
	}
	return fmt.Sprintf("%-12s %-22s %3d  0x%02X  0b%08b", variable, name, r.Value, r.Value, r.Value)
}

func runRead(cmd *cobra.Command, args []string) error {
	variables, err := ParseVariables(args)
	if err != nil {
		return err
	}
	address, err := dcc.NewVehicleAddress(programAddress)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	client, connInfo, err := OpenClient(nil)
	if err != nil {
		return err
	}
	defer client.Close()
	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)

	programmer := newProgrammer(client, progressObserver())

	ch := make(chan map[dcc.ExtendedVariableIndex]control.VariableResult, 1)
	programmer.ReadExtendedVariableMap(address, variables, func(results map[dcc.ExtendedVariableIndex]control.VariableResult) {
		ch <- results
	})
	results := <-ch

	failed := 0
	for _, variable := range variables {
		r, ok := results[variable]
		if !ok {
			r = control.Failed[dcc.VariableValue](control.ErrShortCircuit)
		}
		if r.Failed() {
			failed++
		}
		fmt.Println(formatResult(variable, r))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d variables could not be read", failed, len(variables))
	}
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	variable, err := ParseVariable(args[0])
	if err != nil {
		return err
	}
	value, err := ParseValue(args[1])
	if err != nil {
		return err
	}
	address, err := dcc.NewVehicleAddress(programAddress)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	client, connInfo, err := OpenClient(nil)
	if err != nil {
		return err
	}
	defer client.Close()
	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)

	programmer := newProgrammer(client, progressObserver())

	ch := make(chan control.VariableResult, 1)
	programmer.WriteExtendedVariable(address, variable, value, retryUntilFinal(ch))
	r := <-ch
	fmt.Println(formatResult(variable, r))
	if r.Failed() {
		return fmt.Errorf("write failed: %w", r.Err)
	}

	if !writeVerify {
		return nil
	}

	programmer.ReadExtendedVariable(address, variable, retryUntilFinal(ch))
	r = <-ch
	if r.Failed() {
		return fmt.Errorf("verify failed: %w", r.Err)
	}
	if r.Value != value {
		return fmt.Errorf("verify failed: read %d, wrote %d", r.Value, value)
	}
	fmt.Println("Verified")
	return nil
}
