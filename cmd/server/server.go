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

package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-scan/pkg/command"
	"jinr.ru/greenlab/go-scan/pkg/config"
)

const (
	AddressOptionName   = "address"
	PortOptionName      = "port"
	ModelOptionName     = "model"
	TransportOptionName = "transport"
	AdvertiseOptionName = "advertise"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Scanner API server",
	}
	cmd.AddCommand(NewStartCommand())
	return cmd
}

func NewStartCommand() *cobra.Command {
	var address, model, transport string
	var port int
	var advertise bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Api.Address = address
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			if model != "" {
				cfg.Device.Model = model
			}
			if transport != "" {
				cfg.Device.Transport = transport
			}
			if cmd.Flags().Changed(AdvertiseOptionName) {
				cfg.Api.Advertise = advertise
			}
			return command.StartServer(cfg)
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port to bind. E.g. %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&model, ModelOptionName, "", fmt.Sprintf("Scanner model. E.g. %s", config.DefaultModel))
	cmd.Flags().StringVar(&transport, TransportOptionName, "", fmt.Sprintf("Device transport: %s or %s", config.TransportUSB, config.TransportSim))
	cmd.Flags().BoolVar(&advertise, AdvertiseOptionName, false, "Advertise the API over mDNS")
	return cmd
}
