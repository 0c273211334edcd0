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

package command

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/config"
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/device/sim"
	"jinr.ru/greenlab/go-scan/pkg/device/usb"
	"jinr.ru/greenlab/go-scan/pkg/engine"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/srv"
	"jinr.ru/greenlab/go-scan/pkg/state"
)

// OpenChannel connects to the scanner of the configured model. The sim
// transport emulates the model family in memory.
func OpenChannel(cfg *config.Config, resolver *capability.Resolver) (ifc.Channel, func() error, error) {
	model, err := resolver.Model(cfg.Device.Model)
	if err != nil {
		return nil, nil, err
	}
	fam, err := device.Lookup(model.Family)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Device.Transport {
	case config.TransportSim:
		opts := sim.DefaultOptions(fam.Registers(), fam.Layout())
		opts.PaperAddr, opts.PaperMask = fam.PaperSensor()
		s, err := sim.New(opts)
		if err != nil {
			return nil, nil, err
		}
		if model.SheetFed {
			s.Insert()
		}
		log.Info("Using simulated %s scanner", model.Family)
		return s, func() error { return nil }, nil
	case config.TransportUSB:
		vid, pid := cfg.Device.VendorID, cfg.Device.ProductID
		if vid == 0 || pid == 0 {
			vid, pid = model.VendorID, model.ProductID
		}
		ch, err := usb.Open(vid, pid, device.RegMap[device.RegStatus])
		if err != nil {
			return nil, nil, err
		}
		log.Info("Opened USB scanner %04x:%04x", vid, pid)
		return ch, ch.Close, nil
	}
	return nil, nil, ErrUnknownTransport{Transport: cfg.Device.Transport}
}

// StartServer initializes the engine for the configured model and serves
// the API until interrupted
func StartServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := capability.Load(cfg.Capabilities)
	if err != nil {
		return err
	}
	ch, closeCh, err := OpenChannel(cfg, resolver)
	if err != nil {
		return err
	}
	defer closeCh()

	store, err := state.NewStore(ctx, cfg.DBPath, cfg.Calibration.CacheExpiration)
	if err != nil {
		return err
	}
	defer store.Close()
	if n, err := store.PurgeExpired(cfg.Device.Model); err != nil {
		log.Warning("Unable to purge expired calibrations: %s", err)
	} else if n > 0 {
		log.Info("Purged %d expired calibrations", n)
	}

	opts := engine.OptionsFromConfig(cfg)
	opts.Store = store
	eng := engine.New(ch, resolver, opts)
	if err := eng.Init(cfg.Device.Model); err != nil {
		return err
	}

	s, err := srv.NewApiServer(ctx, cfg, eng, resolver)
	if err != nil {
		return err
	}
	if err := s.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("API server stopped")
	return nil
}
