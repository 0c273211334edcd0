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

package srv

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

// RegHex is a register with address and value as hexadecimal strings
type RegHex struct {
	Addr  string `json:"addr"`
	Value string `json:"value"`
}

func NewRegHex(r regs.Reg) *RegHex {
	addr, value := r.Hex()
	return &RegHex{Addr: addr, Value: value}
}

// Reg parses the hexadecimal strings
func (h *RegHex) Reg() (regs.Reg, error) {
	addr, err := regs.ParseAddr(h.Addr)
	if err != nil {
		return regs.Reg{}, ErrBadRegister{What: "address " + h.Addr, Err: err}
	}
	value, err := strconv.ParseUint(h.Value, 0, 8)
	if err != nil {
		return regs.Reg{}, ErrBadRegister{What: "value " + h.Value, Err: err}
	}
	return regs.Reg{Addr: addr, Value: byte(value)}, nil
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: addr: %s", vars["addr"])
		addr, err := regs.ParseAddr(vars["addr"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		value, err := s.engine.ReadRegister(addr)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, NewRegHex(regs.Reg{Addr: addr, Value: value}))
	}
}

// handleRegReadAll dumps the register file as last programmed
func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling reg read all request")
		s.mu.Lock()
		defer s.mu.Unlock()
		snap, err := s.engine.Registers()
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]*RegHex, 0, len(snap))
		for _, reg := range snap {
			out = append(out, NewRegHex(reg))
		}
		writeJSON(w, out)
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling reg write request: addr: %s value: %s", regHex.Addr, regHex.Value)
		reg, err := regHex.Reg()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.engine.WriteRegister(reg.Addr, reg.Value); err != nil {
			writeError(w, err)
			return
		}
		writeOk(w)
	}
}
