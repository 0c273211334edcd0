/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package scan

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-scan/pkg/command"
	"jinr.ru/greenlab/go-scan/pkg/config"
)

const (
	DPIOptionName    = "dpi"
	ColorOptionName  = "color"
	DepthOptionName  = "depth"
	XOptionName      = "x"
	YOptionName      = "y"
	PixelsOptionName = "pixels"
	LinesOptionName  = "lines"
	OutputOptionName = "output"
	ModelOptionName  = "model"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan and move the scanner through the API server",
	}
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewCalibrateCommand())
	cmd.AddCommand(NewSearchCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewInitCommand())
	for _, action := range []string{"park", "load", "eject", "cancel"} {
		cmd.AddCommand(NewActionCommand(action))
	}
	return cmd
}

func NewStatusCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the engine state",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg).Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State: %s\n", status.State)
			fmt.Fprintf(out, "Model: %s (%s)\n", status.Model, status.Family)
			if status.SheetFed {
				fmt.Fprintf(out, "Document loaded: %t\n", status.Document)
			}
			if len(status.Calibrated) > 0 {
				fmt.Fprintf(out, "Calibrated: %s\n", strings.Join(status.Calibrated, ", "))
			}
			if status.Scanning {
				fmt.Fprintf(out, "Scanning, %d lines read\n", status.LinesRead)
			}
			if ref := status.Reference; ref != nil && ref.Found {
				fmt.Fprintf(out, "Reference: %.2fmm x %.2fmm\n", ref.XMM, ref.YMM)
			}
			return nil
		},
	}
	return cmd
}

func NewInitCommand() *cobra.Command {
	var model string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Select the scanner model and reset the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				model = cfg.Device.Model
			}
			return command.NewApiClient(cfg).Init(model)
		},
	}
	cmd.Flags().StringVar(&model, ModelOptionName, "", "Scanner model, defaults to the configured one")
	return cmd
}

// NewActionCommand builds the commands that take no arguments and return
// nothing but success
func NewActionCommand(action string) *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	short := map[string]string{
		"park":   "Move the head to the home position",
		"load":   "Wait for a document and feed it to the scan line",
		"eject":  "Eject the loaded document",
		"cancel": "Cancel the running operation",
	}
	cmd := &cobra.Command{
		Use:   action,
		Short: short[action],
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.NewApiClient(cfg)
			switch action {
			case "park":
				return c.Park()
			case "load":
				return c.Load()
			case "eject":
				return c.Eject()
			default:
				return c.Cancel()
			}
		},
	}
	return cmd
}
