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
	"fmt"
	"net/http"
	"strconv"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/config"
	"jinr.ru/greenlab/go-scan/pkg/engine"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/srv"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	address := cfg.Api.Address
	if address == "" || address == "0.0.0.0" {
		address = "127.0.0.1"
	}
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", address, cfg.Api.Port),
	}
}

func (c *ApiClient) url(path string) string {
	return c.ApiPrefix + path
}

// check turns a failed response into ErrApi
func check(r *req.Resp) error {
	resp := r.Response()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body := &srv.ErrorBody{}
	if err := r.ToJSON(body); err != nil || body.Message == "" {
		return ErrApi{Code: resp.StatusCode, Message: resp.Status}
	}
	return ErrApi{Code: resp.StatusCode, Kind: body.Kind, Message: body.Message}
}

func (c *ApiClient) get(path string, v interface{}) error {
	r, err := req.Get(c.url(path))
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	return r.ToJSON(v)
}

func (c *ApiClient) post(path string, body, v interface{}) error {
	var params []interface{}
	if body != nil {
		params = append(params, req.BodyJSON(body))
	}
	r, err := req.Post(c.url(path), params...)
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return r.ToJSON(v)
}

// Status returns the engine state
func (c *ApiClient) Status() (*engine.Status, error) {
	status := &engine.Status{}
	if err := c.get("/status", status); err != nil {
		return nil, err
	}
	return status, nil
}

// Models lists the models the server knows
func (c *ApiClient) Models() ([]srv.ModelInfo, error) {
	var models []srv.ModelInfo
	if err := c.get("/models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *ApiClient) Init(model string) error {
	return c.post("/init", &srv.InitRequest{Model: model}, nil)
}

func (c *ApiClient) Park() error {
	return c.post("/park", nil, nil)
}

func (c *ApiClient) Load() error {
	return c.post("/load", nil, nil)
}

func (c *ApiClient) Eject() error {
	return c.post("/eject", nil, nil)
}

func (c *ApiClient) Cancel() error {
	return c.post("/cancel", nil, nil)
}

// Search sends request to find the calibration area start position
func (c *ApiClient) Search() (*engine.ReferencePoint, error) {
	ref := &engine.ReferencePoint{}
	if err := c.post("/search", nil, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Calibrate sends request to calibrate the front end for dpi and color mode
func (c *ApiClient) Calibrate(dpi int, color bool) (*calibration.State, error) {
	st := &calibration.State{}
	if err := c.post("/calibrate", &srv.CalibrateRequest{DPI: dpi, Color: color}, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ScanResult is a scanned PNM image
type ScanResult struct {
	Image    []byte
	Lines    int
	PaperOut bool
}

// Scan sends request to scan an area and returns the PNM image
func (c *ApiClient) Scan(request geometry.Request) (*ScanResult, error) {
	r, err := req.Post(c.url("/scan"), req.BodyJSON(&request))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	header := r.Response().Header
	lines, err := strconv.Atoi(header.Get(srv.LinesHeader))
	if err != nil {
		return nil, fmt.Errorf("bad %s header: %w", srv.LinesHeader, err)
	}
	paperOut, _ := strconv.ParseBool(header.Get(srv.PaperOutHeader))
	return &ScanResult{Image: r.Bytes(), Lines: lines, PaperOut: paperOut}, nil
}

// RegRead sends request to get the value of a register
func (c *ApiClient) RegRead(addr string) (string, error) {
	reg := &srv.RegHex{}
	if err := c.get("/reg/"+addr, reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll sends request to get values of all registers
func (c *ApiClient) RegReadAll() (map[string]string, error) {
	var regs []*srv.RegHex
	if err := c.get("/reg", &regs); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	for _, reg := range regs {
		result[reg.Addr] = reg.Value
	}
	return result, nil
}

// RegWrite sends request to write the value to a register
func (c *ApiClient) RegWrite(addr, value string) error {
	return c.post("/reg", &srv.RegHex{Addr: addr, Value: value}, nil)
}
