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

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-scan/pkg/command"
	"jinr.ru/greenlab/go-scan/pkg/config"
)

func NewCalibrateCommand() *cobra.Command {
	var dpi int
	var color bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate the analog front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := command.NewApiClient(cfg).Calibrate(dpi, color)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for c, ch := range st.Channels {
				fmt.Fprintf(out, "Channel %d: offset %d gain %d exposure %d (black %d white %d)\n",
					c, ch.Offset, ch.Gain, ch.Exposure, ch.Black, ch.White)
			}
			if st.Degraded {
				fmt.Fprintf(out, "Calibration degraded after %d iterations\n", st.OffsetIterations+st.GainIterations)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&dpi, DPIOptionName, 0, "Resolution, the model calibration resolution when 0")
	cmd.Flags().BoolVar(&color, ColorOptionName, false, "Calibrate for color")
	return cmd
}

func NewSearchCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the start position of the calibration area",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := command.NewApiClient(cfg).Search()
			if err != nil {
				return err
			}
			if !ref.Found {
				fmt.Fprintln(cmd.OutOrStdout(), "No reference found")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reference at %d,%d (%d dpi): %.2fmm x %.2fmm\n",
				ref.X, ref.Y, ref.DPI, ref.XMM, ref.YMM)
			return nil
		},
	}
	return cmd
}
