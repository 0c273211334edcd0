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
	"errors"
	"net/http"

	"jinr.ru/greenlab/go-scan/pkg/engine"
	"jinr.ru/greenlab/go-scan/pkg/log"
)

// ErrorBody is the JSON answer of a failed request
// swagger:response errResp
type ErrorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var kindStatus = map[engine.Kind]int{
	engine.TransportError:      http.StatusBadGateway,
	engine.MotorTimeout:        http.StatusGatewayTimeout,
	engine.SensorTimeout:       http.StatusGatewayTimeout,
	engine.DocumentTimeout:     http.StatusGatewayTimeout,
	engine.DeviceBusy:          http.StatusConflict,
	engine.NoCapabilityMatch:   http.StatusBadRequest,
	engine.InvalidGeometry:     http.StatusBadRequest,
	engine.InvalidMotorProfile: http.StatusBadRequest,
	engine.UnknownAddress:      http.StatusBadRequest,
	engine.NoDocument:          http.StatusPreconditionFailed,
	engine.Jammed:              http.StatusConflict,
	engine.OutOfMemory:         http.StatusInsufficientStorage,
	engine.Cancelled:           http.StatusConflict,
}

// StatusOf maps an engine error to the HTTP status of the answer
func StatusOf(err error) int {
	if errors.Is(err, engine.ErrNotInitialized) {
		return http.StatusConflict
	}
	var unknown ErrUnknownOperation
	if errors.As(err, &unknown) {
		return http.StatusBadRequest
	}
	if code, ok := kindStatus[engine.Classify(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusOf(err)
	log.Debug("Request failed with %d: %s", code, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorBody{
		Code:    code,
		Kind:    engine.Classify(err).String(),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warning("Unable to encode response: %s", err)
	}
}

func writeOk(w http.ResponseWriter) {
	resp := RespOk{}
	resp.Body.Code = http.StatusOK
	writeJSON(w, resp.Body)
}
