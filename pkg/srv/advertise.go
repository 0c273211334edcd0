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
	"github.com/grandcat/zeroconf"

	"jinr.ru/greenlab/go-scan/pkg/log"
)

const (
	ServiceType   = "_go-scan._tcp"
	ServiceDomain = "local."
	DefaultName   = "go-scan"
)

// Advertise registers the API as a DNS-SD service so clients can find it
// on the local network
func Advertise(name string, port int) (*zeroconf.Server, error) {
	if name == "" {
		name = DefaultName
	}
	server, err := zeroconf.Register(name, ServiceType, ServiceDomain, port, []string{"txtvers=1", "path=/api"}, nil)
	if err != nil {
		return nil, err
	}
	log.Info("Advertising %s as %s.%s on port %d", name, ServiceType, ServiceDomain, port)
	return server, nil
}
