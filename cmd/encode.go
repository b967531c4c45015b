// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/railkit/cvscope/pkg/dcc"
	"github.com/spf13/cobra"
)

var (
	encodeSend      bool
	encodeSteps     string
	encodeDirection string
	encodeLight     bool
	encodeOff       bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode DCC packets",
	Long: `Encode DCC packets and print them as hex bytes with a decoded summary.

With --send the packets are transmitted on the main track of the connected
command station (<M 0 ...>). The station appends its own checksum.`,
}

var encodeSpeedCmd = &cobra.Command{
	Use:   "speed <address> <speed>",
	Short: "Encode a speed and direction packet",
	Long: `Encode a speed and direction packet.

The speed is given in the step mode selected with --steps:
  14       0..15 (1 is emergency stop), --light sets FL
  28       0..31 (1 is emergency stop)
  126      0..127 (1 is emergency stop)
  percent  0..100, sent in 126 step mode`,
	Args: cobra.ExactArgs(2),
	RunE: runEncodeSpeed,
}

var encodeFunctionCmd = &cobra.Command{
	Use:   "function <address> <function>...",
	Short: "Encode function group packets",
	Long: `Encode the function group packets switching the given functions on.

Functions of the same group share one packet; the other functions of each
group are switched off. With --off the given functions are switched off.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEncodeFunction,
}

var encodeVerifyCmd = &cobra.Command{
	Use:   "verify <cv> <value>",
	Short: "Encode a service mode verify byte packet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEncodeServiceMode(args, dcc.VerifyByte)
	},
}

var encodeWriteCmd = &cobra.Command{
	Use:   "write <cv> <value>",
	Short: "Encode a service mode write byte packet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEncodeServiceMode(args, dcc.WriteByte)
	},
}

var encodeBitCmd = &cobra.Command{
	Use:   "bit <cv> <position> <0|1>",
	Short: "Encode a service mode verify bit packet",
	Args:  cobra.ExactArgs(3),
	RunE:  runEncodeBit,
}

var encodeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Encode the decoder reset packet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitRequests(dcc.ResetRequest())
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.PersistentFlags().BoolVar(&encodeSend, "send", false, "Transmit the packets via the command station")

	encodeSpeedCmd.Flags().StringVar(&encodeSteps, "steps", "126", "Speed steps (14, 28, 126, percent)")
	encodeSpeedCmd.Flags().StringVarP(&encodeDirection, "direction", "d", "forward", "Direction (forward, reverse)")
	encodeSpeedCmd.Flags().BoolVar(&encodeLight, "light", false, "Set the FL bit (14 steps only)")
	encodeFunctionCmd.Flags().BoolVar(&encodeOff, "off", false, "Switch the functions off instead")

	encodeCmd.AddCommand(encodeSpeedCmd, encodeFunctionCmd, encodeVerifyCmd, encodeWriteCmd, encodeBitCmd, encodeResetCmd)
}

// speedRequest builds a speed packet for value in the given step mode
func speedRequest(address dcc.VehicleAddress, value int, steps string, direction dcc.Direction, light bool) (dcc.Request, error) {
	limit := map[string]int{"14": 15, "28": 31, "126": 127, "percent": 100}
	maxValue, ok := limit[strings.ToLower(steps)]
	if !ok {
		return nil, fmt.Errorf("invalid speed steps %q (expected 14, 28, 126 or percent)", steps)
	}
	if value < 0 || value > maxValue {
		return nil, fmt.Errorf("speed %d out of range [0..%d] for %s steps", value, maxValue, steps)
	}
	if light && steps != "14" {
		return nil, fmt.Errorf("--light requires 14 speed steps")
	}

	var req dcc.Request
	switch strings.ToLower(steps) {
	case "14":
		req = dcc.SetSpeed14(address, dcc.Speed14(value), direction, light)
	case "28":
		req = dcc.SetSpeed28(address, dcc.Speed28(value), direction)
	case "126":
		req = dcc.SetSpeed126(address, dcc.Speed126(value), direction)
	default:
		req = dcc.SetSpeed(address, dcc.NewSpeed(dcc.SpeedPercentile(value)), direction)
	}
	if !req.Valid() {
		return nil, fmt.Errorf("cannot encode speed %d for address %d", value, address)
	}
	return req, nil
}

// functionRequests builds one packet per function group touched by functions
func functionRequests(address dcc.VehicleAddress, functions []dcc.Function, on bool) []dcc.Request {
	var state dcc.FunctionState
	if on {
		state = dcc.FunctionStateOf(functions...)
	}

	var requests []dcc.Request
	seen := make(map[dcc.FunctionGroup]bool)
	for _, fn := range functions {
		g := dcc.FunctionGroupOf(fn)
		if seen[g] {
			continue
		}
		seen[g] = true
		requests = append(requests, dcc.SetFunctions(address, g, dcc.FunctionMask(g.Range(), state)))
	}
	return requests
}

// formatRequestLine renders one packet as "TYPE  hex  (fields)"
func formatRequestLine(req dcc.Request) string {
	return fmt.Sprintf("%-18s %-18s (%s)", dcc.FormatRequestType(req), dcc.FormatHex(req.Bytes()), dcc.FormatRequest(req))
}

// emitRequests prints packets and transmits them with --send
func emitRequests(requests ...dcc.Request) error {
	for _, req := range requests {
		if !req.Valid() {
			return fmt.Errorf("packet could not be encoded")
		}
		fmt.Println(formatRequestLine(req))
	}

	if !encodeSend {
		return nil
	}

	client, connInfo, err := OpenClient(nil)
	if err != nil {
		return err
	}
	defer client.Close()

	for _, req := range requests {
		if err := client.SendFrame(req); err != nil {
			return err
		}
	}
	fmt.Printf("Sent %d packet(s) via %s\n", len(requests), connInfo)
	return nil
}

func runEncodeSpeed(cmd *cobra.Command, args []string) error {
	address, err := ParseAddress(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid speed %q", args[1])
	}
	direction, err := dcc.ParseDirection(encodeDirection)
	if err != nil {
		return err
	}

	req, err := speedRequest(address, value, encodeSteps, direction, encodeLight)
	if err != nil {
		return err
	}
	return emitRequests(req)
}

func runEncodeFunction(cmd *cobra.Command, args []string) error {
	address, err := ParseAddress(args[0])
	if err != nil {
		return err
	}

	var functions []dcc.Function
	for _, arg := range args[1:] {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(arg), "F"))
		if err != nil {
			return fmt.Errorf("invalid function %q", arg)
		}
		fn, err := dcc.NewFunction(n)
		if err != nil {
			return fmt.Errorf("invalid function %q: %w", arg, err)
		}
		functions = append(functions, fn)
	}

	return emitRequests(functionRequests(address, functions, !encodeOff)...)
}

func runEncodeServiceMode(args []string, build func(dcc.VariableIndex, dcc.VariableValue) dcc.Request) error {
	variable, err := parseBaseVariable(args[0], 1)
	if err != nil {
		return err
	}
	value, err := ParseValue(args[1])
	if err != nil {
		return err
	}
	return emitRequests(build(variable, value))
}

func runEncodeBit(cmd *cobra.Command, args []string) error {
	variable, err := parseBaseVariable(args[0], 1)
	if err != nil {
		return err
	}
	position, err := parseNumber(args[1], 8)
	if err != nil || position > 7 {
		return fmt.Errorf("invalid bit position %q (expected 0..7)", args[1])
	}

	var value bool
	switch args[2] {
	case "0":
	case "1":
		value = true
	default:
		return fmt.Errorf("invalid bit value %q (expected 0 or 1)", args[2])
	}

	return emitRequests(dcc.VerifyBit(variable, value, uint8(position)))
}
