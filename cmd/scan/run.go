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
	"io/ioutil"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-scan/pkg/command"
	"jinr.ru/greenlab/go-scan/pkg/config"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
)

func NewRunCommand() *cobra.Command {
	var output string
	request := geometry.Request{}
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan an area and save it as a PNM image",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := command.NewApiClient(cfg).Scan(request)
			if err != nil {
				return err
			}
			if res.PaperOut {
				log.Warning("Document ended after %d of %d lines", res.Lines, request.Lines)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(res.Image)
				return err
			}
			log.Info("Writing %d lines to %s", res.Lines, output)
			return ioutil.WriteFile(output, res.Image, 0644)
		},
	}
	cmd.Flags().IntVar(&request.DPI, DPIOptionName, 300, "Resolution in dots per inch")
	cmd.Flags().BoolVar(&request.Color, ColorOptionName, false, "Scan in color")
	cmd.Flags().IntVar(&request.Depth, DepthOptionName, 8, "Bits per sample, 8 or 16")
	cmd.Flags().IntVar(&request.X, XOptionName, 0, "Left edge of the area in pixels")
	cmd.Flags().IntVar(&request.Y, YOptionName, 0, "Top edge of the area in lines")
	cmd.Flags().IntVar(&request.Pixels, PixelsOptionName, 0, "Width of the area in pixels")
	cmd.MarkFlagRequired(PixelsOptionName)
	cmd.Flags().IntVar(&request.Lines, LinesOptionName, 0, "Height of the area in lines")
	cmd.MarkFlagRequired(LinesOptionName)
	cmd.Flags().StringVarP(&output, OutputOptionName, "o", "", "Output file, stdout when empty")
	return cmd
}
