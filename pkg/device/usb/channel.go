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

// Package usb implements the device channel over the vendor control and
// bulk pipes of a USB attached scanner ASIC.
package usb

import (
	"fmt"
	"time"

	"github.com/google/gousb"

	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/layers"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

const (
	RequestTypeOut = 0x40
	RequestTypeIn  = 0xc0

	RequestRegister = 0x0c
	RequestBuffer   = 0x04

	ValueBuffer        = 0x82
	ValueSetRegister   = 0x83
	ValueReadRegister  = 0x84
	ValueWriteRegister = 0x85

	DefaultStatusAddr = 0x41
	DefaultTimeout    = 5 * time.Second
	// MaxRegistersPerWrite bounds the pair payload of one bulk register write
	MaxRegistersPerWrite = 32
)

type Channel struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	statusAddr regs.Addr
}

var _ ifc.Channel = (*Channel)(nil)

// Open claims the first interface of the scanner identified by vid:pid
func Open(vid, pid uint16, statusAddr regs.Addr) (*Channel, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, ifc.ErrTransport{Op: "open", Err: err}
	}
	if dev == nil {
		ctx.Close()
		return nil, ifc.ErrTransport{Op: "open", Err: fmt.Errorf("device %04x:%04x not found", vid, pid)}
	}
	if err := dev.SetAutoDetach(true); err != nil {
		log.Debug("Unable to enable kernel driver auto detach: %s", err)
	}
	dev.ControlTimeout = DefaultTimeout

	c := &Channel{ctx: ctx, dev: dev, statusAddr: statusAddr}
	if err := c.claim(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, ifc.ErrTransport{Op: "claim", Err: err}
	}
	log.Info("Opened scanner %04x:%04x", vid, pid)
	return c, nil
}

func (c *Channel) claim() error {
	cfg, err := c.dev.Config(1)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("interface 0: %w", err)
	}

	var inAddr, outAddr int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && inAddr == 0 {
			inAddr = ep.Number
		}
		if ep.Direction == gousb.EndpointDirectionOut && outAddr == 0 {
			outAddr = ep.Number
		}
	}
	if inAddr == 0 || outAddr == 0 {
		intf.Close()
		cfg.Close()
		return fmt.Errorf("bulk endpoints not found")
	}
	if c.epIn, err = intf.InEndpoint(inAddr); err != nil {
		intf.Close()
		cfg.Close()
		return fmt.Errorf("in endpoint: %w", err)
	}
	if c.epOut, err = intf.OutEndpoint(outAddr); err != nil {
		intf.Close()
		cfg.Close()
		return fmt.Errorf("out endpoint: %w", err)
	}
	c.cfg = cfg
	c.intf = intf
	return nil
}

func (c *Channel) control(rType, request uint8, value uint16, data []byte) error {
	n, err := c.dev.Control(rType, request, value, 0, data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("short control transfer: %d of %d bytes", n, len(data))
	}
	return nil
}

func (c *Channel) ReadRegister(addr regs.Addr) (byte, error) {
	if addr > layers.MaxRegAddr {
		return 0, ifc.ErrTransport{Op: "read register", Err: fmt.Errorf("address %s out of range", addr)}
	}
	if err := c.control(RequestTypeOut, RequestRegister, ValueSetRegister, []byte{byte(addr)}); err != nil {
		return 0, ifc.ErrTransport{Op: "read register", Err: err}
	}
	val := make([]byte, 1)
	if err := c.control(RequestTypeIn, RequestRegister, ValueReadRegister, val); err != nil {
		return 0, ifc.ErrTransport{Op: "read register", Err: err}
	}
	log.Debug("Read register %s", regs.Reg{Addr: addr, Value: val[0]})
	return val[0], nil
}

func (c *Channel) WriteRegister(addr regs.Addr, val byte) error {
	if addr > layers.MaxRegAddr {
		return ifc.ErrTransport{Op: "write register", Err: fmt.Errorf("address %s out of range", addr)}
	}
	if err := c.control(RequestTypeOut, RequestRegister, ValueSetRegister, []byte{byte(addr)}); err != nil {
		return ifc.ErrTransport{Op: "write register", Err: err}
	}
	if err := c.control(RequestTypeOut, RequestRegister, ValueWriteRegister, []byte{val}); err != nil {
		return ifc.ErrTransport{Op: "write register", Err: err}
	}
	return nil
}

// BulkWrite sends the registers in chunks, each announced by a bulk header
func (c *Channel) BulkWrite(set []regs.Reg) error {
	for start := 0; start < len(set); start += MaxRegistersPerWrite {
		end := start + MaxRegistersPerWrite
		if end > len(set) {
			end = len(set)
		}
		header, payload, err := layers.SerializeRegisterWrite(set[start:end])
		if err != nil {
			return ifc.ErrTransport{Op: "bulk write", Err: err}
		}
		if err := c.control(RequestTypeOut, RequestBuffer, ValueBuffer, header); err != nil {
			return ifc.ErrTransport{Op: "bulk write", Err: err}
		}
		if _, err := c.epOut.Write(payload); err != nil {
			return ifc.ErrTransport{Op: "bulk write", Err: err}
		}
	}
	log.Debug("Bulk wrote %d registers", len(set))
	return nil
}

func (c *Channel) BulkReadData(length int) ([]byte, error) {
	out := make([]byte, 0, length)
	for len(out) < length {
		size := length - len(out)
		if size > layers.BulkMaxSize {
			size = layers.BulkMaxSize
		}
		header, err := layers.SerializeBulkHeader(layers.BulkIn, size)
		if err != nil {
			return nil, ifc.ErrTransport{Op: "bulk read", Err: err}
		}
		if err := c.control(RequestTypeOut, RequestBuffer, ValueBuffer, header); err != nil {
			return nil, ifc.ErrTransport{Op: "bulk read", Err: err}
		}
		buf := make([]byte, size)
		n, err := c.epIn.Read(buf)
		if err != nil {
			return nil, ifc.ErrTransport{Op: "bulk read", Err: err}
		}
		if n != size {
			return nil, ifc.ErrTransport{Op: "bulk read", Err: fmt.Errorf("short read: %d of %d bytes", n, size)}
		}
		out = append(out, buf...)
	}
	return out, nil
}

func (c *Channel) BulkWriteData(data []byte) error {
	for start := 0; start < len(data); start += layers.BulkMaxSize {
		end := start + layers.BulkMaxSize
		if end > len(data) {
			end = len(data)
		}
		header, err := layers.SerializeBulkHeader(layers.BulkOut, end-start)
		if err != nil {
			return ifc.ErrTransport{Op: "bulk write data", Err: err}
		}
		if err := c.control(RequestTypeOut, RequestBuffer, ValueBuffer, header); err != nil {
			return ifc.ErrTransport{Op: "bulk write data", Err: err}
		}
		if _, err := c.epOut.Write(data[start:end]); err != nil {
			return ifc.ErrTransport{Op: "bulk write data", Err: err}
		}
	}
	return nil
}

func (c *Channel) ReadStatus() (ifc.Status, error) {
	v, err := c.ReadRegister(c.statusAddr)
	if err != nil {
		return 0, err
	}
	return ifc.Status(v), nil
}

// Close ...
func (c *Channel) Close() error {
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		c.cfg.Close()
	}
	if c.dev != nil {
		c.dev.Close()
	}
	return c.ctx.Close()
}
